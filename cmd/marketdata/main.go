package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"marketdata/internal/adapter/cache"
	"marketdata/internal/adapter/handler"
	"marketdata/internal/adapter/provider"
	"marketdata/internal/adapter/storage"
	"marketdata/internal/application/service"
	"marketdata/internal/application/usecase"
	"marketdata/internal/concurrency/worker"
	"marketdata/internal/domain/model"
	"marketdata/internal/domain/port"
	"marketdata/internal/infrastructure/config"
	"marketdata/internal/infrastructure/logger"
	"marketdata/internal/infrastructure/server"

	"github.com/joho/godotenv"
)

var (
	portFlag   = flag.Int("port", 0, "Port number")
	configFlag = flag.String("config", "configs/config.yaml", "Path to the YAML config file")
	helpFlag   = flag.Bool("help", false, "Show help")
)

type App struct {
	config    *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	server    *server.Server
	cache     port.QuoteCache
	store     port.QuoteStore
	upstream  *provider.TCP
	refresher *service.RefreshService
	cancel    context.CancelFunc
}

func main() {
	flag.Parse()

	if *helpFlag {
		printUsage()
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	path := *configFlag
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == "configs/config.yaml" {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *portFlag != 0 {
		cfg.Server.Port = *portFlag
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --port: %v\n", err)
			os.Exit(1)
		}
	}

	log, logCloser, err := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting marketdata", "version", "1.0.0")

	app, err := newApp(cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	app.logCloser = logCloser

	errCh := make(chan error, 1)
	go func() {
		if err := app.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		log.Info("shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
		exitCode = 1
	}

	app.shutdown()
	os.Exit(exitCode)
}

func newApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{config: cfg, logger: log, cancel: cancel}

	if err := app.initCache(); err != nil {
		cancel()
		return nil, err
	}
	if err := app.initStore(ctx); err != nil {
		app.closeAdapters()
		cancel()
		return nil, err
	}

	initialMode, err := model.ParseSourceMode(cfg.Source.Mode)
	if err != nil {
		app.closeAdapters()
		cancel()
		return nil, err
	}
	modeService := service.NewModeService(initialMode, log)

	up := cfg.Source.Upstream
	app.upstream = provider.NewTCP(provider.TCPOptions{
		Name:           up.Name,
		Addr:           cfg.UpstreamAddr(),
		DialTimeout:    up.DialTimeout,
		RequestTimeout: up.RequestTimeout,
	}, log)
	quoteProvider := provider.NewSwitch(modeService, map[model.SourceMode]port.QuoteProvider{
		model.PlaceholderMode: provider.NewPlaceholder(),
		model.UpstreamMode:    provider.NewRateLimited(app.upstream, up.RateLimit, up.Burst),
	}, log)

	marketService := service.NewMarketService(quoteProvider, app.cache, app.store, log)
	modeService.OnSwitch(func(ctx context.Context, from, to model.SourceMode) {
		n, err := marketService.ClearCache(ctx)
		if err != nil {
			log.Error("failed to clear cache after mode switch", "from", from.String(), "to", to.String(), "error", err)
			return
		}
		log.Info("cache cleared after mode switch", "from", from.String(), "to", to.String(), "evicted", n)
	})

	pool := worker.NewPool(cfg.Workers.Count, log)
	quoteUseCase := usecase.NewQuoteUseCase(marketService, app.store, pool)

	if cfg.Refresh.Enabled || app.store != nil {
		app.refresher = service.NewRefreshService(marketService, app.store, pool, cfg.History.Retention, log)
		if cfg.Refresh.Enabled {
			app.refresher.SetSymbols(cfg.Refresh.Symbols)
		}
		if err := app.refresher.Start(ctx, cfg.Refresh.Interval); err != nil {
			cancel()
			return nil, err
		}
	}

	checks := map[string]handler.Pinger{"redis": nil, "postgres": nil}
	if cfg.Redis.Enabled {
		checks["redis"] = app.cache
	}
	if app.store != nil {
		checks["postgres"] = app.store
	}
	healthHandler := handler.NewHealthHandler(checks, log)

	router := handler.NewRouter(quoteUseCase, marketService, modeService, healthHandler, log)
	app.server = server.NewServer(cfg.Server, router, log)

	log.Info("marketdata configured",
		"mode", initialMode.String(),
		"redis", cfg.Redis.Enabled,
		"postgres", cfg.Postgres.Enabled,
		"workers", pool.Size(),
		"refresh", cfg.Refresh.Enabled)

	return app, nil
}

func (a *App) initCache() error {
	if !a.config.Redis.Enabled {
		a.logger.Info("redis disabled, quotes are not cached")
		a.cache = cache.NewNoop()
		return nil
	}

	rc, err := cache.NewRedisAdapter(cache.RedisOptions{
		Addr:         a.config.RedisAddr(),
		Password:     a.config.Redis.Password,
		DB:           a.config.Redis.DB,
		PoolSize:     a.config.Redis.PoolSize,
		MinIdleConns: a.config.Redis.MinIdleConns,
		Name:         a.config.Cache.Name,
		TTL:          a.config.Cache.TTL,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	a.cache = cache.NewGuarded(rc, a.config.Cache.BreakerThreshold, a.config.Cache.BreakerReset, a.logger)
	a.logger.Info("redis cache enabled", "addr", a.config.RedisAddr(), "cache", a.config.Cache.Name, "ttl", a.config.Cache.TTL.String())
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	if !a.config.Postgres.Enabled {
		a.logger.Info("postgres disabled, quote history is off")
		return nil
	}

	pg, err := storage.NewPostgresAdapter(ctx, storage.PostgresOptions{
		DSN:             a.config.PostgresDSN(),
		MaxOpenConns:    a.config.Postgres.MaxOpenConns,
		MaxIdleConns:    a.config.Postgres.MaxIdleConns,
		ConnMaxLifetime: a.config.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if err := pg.InitSchema(ctx); err != nil {
		_ = pg.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	a.store = pg
	return nil
}

func (a *App) closeAdapters() {
	if a.upstream != nil {
		if err := a.upstream.Close(); err != nil {
			a.logger.Error("failed to close upstream", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close store", "error", err)
		}
	}
}

func (a *App) shutdown() {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown error", "error", err)
	}

	if a.refresher != nil {
		a.refresher.Stop()
	}
	a.cancel()
	a.closeAdapters()

	a.logger.Info("shutdown complete")
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  marketdata [--port <N>] [--config <path>]")
	fmt.Println("  marketdata --help")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --port N         Port number")
	fmt.Println("  --config PATH    YAML config file (default configs/config.yaml)")
}
