package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the BoilerBudget client.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: upper bound for a single backend call.
//   - DatabasePath: SQLite file holding the persisted session.
//   - LogLevel / LogFile: slog level and destination (stderr when empty).
//   - OTelEndpoint: OTLP/HTTP collector URL, empty disables tracing.
type Config struct {
	ServerEndpointAddr  string        `env:"BB_SERVER_ADDR"`
	OnlineCheckInterval time.Duration `env:"BB_ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"BB_REQUEST_TIMEOUT"`
	DatabasePath        string        `env:"BB_CLIENT_DB"`
	LogLevel            string        `env:"BB_LOG_LEVEL"`
	LogFile             string        `env:"BB_LOG_FILE"`
	OTelEndpoint        string        `env:"BB_OTEL_ENDPOINT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "boilerbudget.db"
	c.LogLevel = "warn"
}

// LoadConfig applies defaults, then the optional config file, the
// environment and finally the flags found in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}
