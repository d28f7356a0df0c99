package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marketdata/internal/adapter/feed"
	"marketdata/internal/infrastructure/logger"
)

var (
	addrFlag    = flag.String("addr", ":7000", "Listen address")
	baseFlag    = flag.Float64("base", 100, "Base price for generated quotes")
	unknownFlag = flag.String("unknown", "", "Comma-separated symbols answered with NOT_FOUND")
	csvFlag     = flag.Bool("csv", false, "Answer quotes as SYMBOL,BID,ASK lines")
	levelFlag   = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()

	log, closer, err := logger.New(logger.Options{Level: *levelFlag, Format: "text"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	var unknown []string
	for _, s := range strings.Split(*unknownFlag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			unknown = append(unknown, s)
		}
	}

	srv := feed.NewServer(feed.NewGenerator(time.Now().UnixNano(), *baseFlag), feed.Options{
		Unknown: unknown,
		CSV:     *csvFlag,
	}, log)
	if err := srv.Listen(*addrFlag); err != nil {
		log.Error("failed to start quote feed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		log.Error("quote feed stopped", "error", err)
		os.Exit(1)
	}
	log.Info("quote feed stopped")
}
