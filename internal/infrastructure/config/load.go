package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"marketdata/internal/domain/model"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error

	// Server
	setInt("SERVER_PORT", &cfg.Server.Port, &errs)

	// Redis
	setBool("REDIS_ENABLED", &cfg.Redis.Enabled, &errs)
	setString("REDIS_HOST", &cfg.Redis.Host)
	setInt("REDIS_PORT", &cfg.Redis.Port, &errs)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("REDIS_DB", &cfg.Redis.DB, &errs)
	setDuration("CACHE_TTL", &cfg.Cache.TTL, &errs)

	// PostgreSQL
	setBool("POSTGRES_ENABLED", &cfg.Postgres.Enabled, &errs)
	setString("POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("POSTGRES_PORT", &cfg.Postgres.Port, &errs)
	setString("POSTGRES_USER", &cfg.Postgres.User)
	setString("POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("POSTGRES_DB", &cfg.Postgres.Database)

	// Source
	setString("SOURCE_MODE", &cfg.Source.Mode)
	setString("UPSTREAM_HOST", &cfg.Source.Upstream.Host)
	setInt("UPSTREAM_PORT", &cfg.Source.Upstream.Port, &errs)

	// Refresh
	if v := os.Getenv("REFRESH_SYMBOLS"); v != "" {
		cfg.Refresh.Symbols = splitList(v)
		cfg.Refresh.Enabled = len(cfg.Refresh.Symbols) > 0
	}

	// Logging
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_FILE", &cfg.Logging.OutputFile)

	return errors.Join(errs...)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = n
}

func setBool(key string, dst *bool, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = b
}

func setDuration(key string, dst *time.Duration, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return
	}
	*dst = d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL))
	}
	if c.Cache.Name == "" {
		errs = append(errs, errors.New("cache name is required"))
	}
	if _, err := model.ParseSourceMode(c.Source.Mode); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q, must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q, must be json or text", c.Logging.Format))
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		errs = append(errs, fmt.Errorf("refresh interval must be positive, got %s", c.Refresh.Interval))
	}

	return errors.Join(errs...)
}

// PostgresDSN renders the connection settings as a postgres:// URL so
// credentials with spaces or quotes survive intact.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:   net.JoinHostPort(c.Postgres.Host, strconv.Itoa(c.Postgres.Port)),
		Path:   "/" + c.Postgres.Database,
	}
	if c.Postgres.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.Postgres.SSLMode}}.Encode()
	}
	return u.String()
}

func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}

func (c *Config) UpstreamAddr() string {
	return net.JoinHostPort(c.Source.Upstream.Host, strconv.Itoa(c.Source.Upstream.Port))
}
