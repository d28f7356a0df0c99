package config

import "time"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgresql"`
	Source   SourceConfig   `yaml:"source"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	History  HistoryConfig  `yaml:"history"`
	Workers  WorkersConfig  `yaml:"workers"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig is off unless enabled explicitly; without it quotes are not cached.
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

type CacheConfig struct {
	Name             string        `yaml:"name"`
	TTL              time.Duration `yaml:"ttl"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type SourceConfig struct {
	Mode     string         `yaml:"mode"`
	Upstream UpstreamConfig `yaml:"upstream"`
}

type UpstreamConfig struct {
	Name           string        `yaml:"name"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	Burst          int           `yaml:"burst"`
}

type RefreshConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Symbols  []string      `yaml:"symbols"`
}

type HistoryConfig struct {
	Retention time.Duration `yaml:"retention"`
}

type WorkersConfig struct {
	Count int `yaml:"count"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// Default returns the configuration used for every key the file and environment leave unset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		Cache: CacheConfig{
			Name:             "marketData",
			TTL:              60 * time.Minute,
			BreakerThreshold: 5,
			BreakerReset:     10 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "marketdata",
			Database:        "marketdata",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Source: SourceConfig{
			Mode: "placeholder",
			Upstream: UpstreamConfig{
				Name:           "quotefeed",
				Host:           "localhost",
				Port:           7000,
				DialTimeout:    5 * time.Second,
				RequestTimeout: 2 * time.Second,
				RateLimit:      50,
				Burst:          10,
			},
		},
		Refresh: RefreshConfig{
			Interval: time.Minute,
		},
		History: HistoryConfig{
			Retention: 7 * 24 * time.Hour,
		},
		Workers: WorkersConfig{
			Count: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
