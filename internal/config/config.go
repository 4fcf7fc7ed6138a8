package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"heist/server/internal/observability"
	"heist/server/internal/world"
	"heist/server/logging"
)

// Config is the process configuration, read from HEIST_* environment
// variables.
type Config struct {
	Addr string `env:"HEIST_ADDR" envDefault:":8080"`

	TickRate      int           `env:"HEIST_TICK_RATE" envDefault:"20"`
	MatchDuration time.Duration `env:"HEIST_MATCH_DURATION" envDefault:"10m"`
	HeadStart     time.Duration `env:"HEIST_HEAD_START" envDefault:"5s"`
	EntryFee      uint64        `env:"HEIST_ENTRY_FEE" envDefault:"100000000"`
	Cops          int           `env:"HEIST_COPS" envDefault:"2"`
	Thieves       int           `env:"HEIST_THIEVES" envDefault:"4"`
	LayoutPath    string        `env:"HEIST_LAYOUT"`
	Seed          string        `env:"HEIST_SEED"`

	LogSinks    []string `env:"HEIST_LOG_SINKS" envDefault:"console" envSeparator:","`
	LogLevel    string   `env:"HEIST_LOG_LEVEL" envDefault:"info"`
	LogJSONPath string   `env:"HEIST_LOG_JSON_PATH"`

	GrantSecret string        `env:"HEIST_GRANT_SECRET"`
	GrantIssuer string        `env:"HEIST_GRANT_ISSUER" envDefault:"heist"`
	GrantTTL    time.Duration `env:"HEIST_GRANT_TTL" envDefault:"10m"`

	MessageRate  float64 `env:"HEIST_WS_MESSAGE_RATE" envDefault:"30"`
	MessageBurst int     `env:"HEIST_WS_MESSAGE_BURST" envDefault:"60"`

	OTLPEndpoint string `env:"HEIST_OTEL_ENDPOINT"`
	EnablePprof  bool   `env:"HEIST_PPROF"`
	ClientDir    string `env:"HEIST_CLIENT_DIR"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.TickRate <= 0 || c.TickRate > 120 {
		errs = append(errs, fmt.Errorf("HEIST_TICK_RATE must be in (0, 120], got %d", c.TickRate))
	}
	if c.MatchDuration <= 0 {
		errs = append(errs, errors.New("HEIST_MATCH_DURATION must be positive"))
	}
	if c.HeadStart < 0 || c.HeadStart >= c.MatchDuration {
		errs = append(errs, errors.New("HEIST_HEAD_START must be non-negative and shorter than the match"))
	}
	if c.Cops < 1 || c.Thieves < 1 {
		errs = append(errs, errors.New("HEIST_COPS and HEIST_THIEVES must be at least 1"))
	}
	if strings.TrimSpace(c.GrantSecret) == "" {
		errs = append(errs, errors.New("HEIST_GRANT_SECRET is required"))
	}
	if c.GrantTTL <= 0 {
		errs = append(errs, errors.New("HEIST_GRANT_TTL must be positive"))
	}
	if c.MessageRate <= 0 || c.MessageBurst < 1 {
		errs = append(errs, errors.New("HEIST_WS_MESSAGE_RATE and HEIST_WS_MESSAGE_BURST must be positive"))
	}
	for _, sink := range c.LogSinks {
		switch sink {
		case "console", "json":
		default:
			errs = append(errs, fmt.Errorf("unknown log sink %q", sink))
		}
	}
	return errors.Join(errs...)
}

// TickPeriod converts the tick rate into the loop interval.
func (c Config) TickPeriod() time.Duration {
	if c.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(c.TickRate)
}

// Rules applies the configured timings on top of the default tuning.
func (c Config) Rules() world.Rules {
	rules := world.DefaultRules()
	rules.MatchDuration = c.MatchDuration
	rules.HeadStart = c.HeadStart
	return rules
}

// Layout loads the configured arena, falling back to the built-in one.
func (c Config) Layout() (world.Layout, error) {
	if c.LayoutPath == "" {
		return world.DefaultLayout(), nil
	}
	return world.LoadLayout(c.LayoutPath)
}

// Observability selects the optional debug surfaces.
func (c Config) Observability() observability.Config {
	return observability.Config{
		EnablePprof:  c.EnablePprof,
		OTLPEndpoint: c.OTLPEndpoint,
		ServiceName:  "heist-server",
	}
}

// Logging builds the router configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	if len(c.LogSinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), c.LogSinks...)
	}
	cfg.MinimumSeverity = logging.ParseSeverity(c.LogLevel)
	cfg.JSON.FilePath = c.LogJSONPath
	cfg.Fields = map[string]any{"service": "heist"}
	return cfg
}
