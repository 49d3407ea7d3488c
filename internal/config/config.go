// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// envPrefix is prepended to every variable name below.
const envPrefix = "NEXTSLOT_"

// Supported upstream API dialects.
const (
	ModeREST = "rest"
	ModeRPC  = "rpc"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIMode  string `env:"API_MODE" envDefault:"rest"`
	Company  string `env:"COMPANY"`
	Login    string `env:"LOGIN"`
	Password string `env:"PASSWORD"`
	APIKey   string `env:"API_KEY"`
	BaseURL  string `env:"BASE_URL"`

	ListenAddr  string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	CatalogPath string `env:"CATALOG_PATH"`

	WindowDays  int `env:"WINDOW_DAYS" envDefault:"30"`
	MaxDates    int `env:"MAX_DATES" envDefault:"3"`
	MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"5"`
	Parallelism int `env:"PARALLELISM" envDefault:"0"`

	BaseDelay    time.Duration `env:"BASE_DELAY" envDefault:"1s"`
	MaxJitter    time.Duration `env:"MAX_JITTER" envDefault:"200ms"`
	RequestGap   time.Duration `env:"REQUEST_GAP" envDefault:"2s"`
	SafetyMargin time.Duration `env:"SAFETY_MARGIN" envDefault:"5m"`
	AuthTimeout  time.Duration `env:"AUTH_TIMEOUT" envDefault:"10s"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	CacheMaxAge  time.Duration `env:"CACHE_MAX_AGE" envDefault:"5m"`
}

// Load reads configuration from NEXTSLOT_* environment variables and returns a
// validated Config. Credentials are not required here: the server starts
// without them and Credentials reports what is missing.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.APIMode = strings.ToLower(strings.TrimSpace(cfg.APIMode))
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.APIMode != ModeREST && c.APIMode != ModeRPC {
		return fmt.Errorf("%sAPI_MODE must be %q or %q, got %q", envPrefix, ModeREST, ModeRPC, c.APIMode)
	}

	for _, v := range []struct {
		name  string
		value int
		min   int
	}{
		{"WINDOW_DAYS", c.WindowDays, 1},
		{"MAX_DATES", c.MaxDates, 1},
		{"MAX_ATTEMPTS", c.MaxAttempts, 1},
		{"PARALLELISM", c.Parallelism, 0},
	} {
		if v.value < v.min {
			return fmt.Errorf("%s%s must be at least %d, got %d", envPrefix, v.name, v.min, v.value)
		}
	}

	for _, v := range []struct {
		name  string
		value time.Duration
	}{
		{"BASE_DELAY", c.BaseDelay},
		{"MAX_JITTER", c.MaxJitter},
		{"REQUEST_GAP", c.RequestGap},
		{"SAFETY_MARGIN", c.SafetyMargin},
		{"CACHE_MAX_AGE", c.CacheMaxAge},
	} {
		if v.value < 0 {
			return fmt.Errorf("%s%s must not be negative, got %s", envPrefix, v.name, v.value)
		}
	}

	if c.AuthTimeout <= 0 || c.FetchTimeout <= 0 {
		return fmt.Errorf("%sAUTH_TIMEOUT and %sFETCH_TIMEOUT must be positive", envPrefix, envPrefix)
	}

	return nil
}

// envVar pairs a variable name, without prefix, with its value.
type envVar struct {
	name  string
	value string
}

// Credentials returns the credentials the configured API mode needs, or a
// *model.ConfigError naming every missing variable.
func (c *Config) Credentials() (model.Credentials, error) {
	creds := model.Credentials{
		Company: c.Company,
		Login:   c.Login,
		Secret:  c.Password,
		APIKey:  c.APIKey,
	}

	required := []envVar{{"COMPANY", c.Company}}
	if c.APIMode == ModeRPC {
		required = append(required, envVar{"API_KEY", c.APIKey})
	} else {
		required = append(required, envVar{"LOGIN", c.Login}, envVar{"PASSWORD", c.Password})
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, envPrefix+r.name)
		}
	}
	if len(missing) > 0 {
		return model.Credentials{}, &model.ConfigError{Missing: missing}
	}

	return creds, nil
}

// LogValue implements slog.LogValuer. Secrets are never included.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_mode", c.APIMode),
		slog.String("company", c.Company),
		slog.String("listen_addr", c.ListenAddr),
		slog.String("catalog_path", c.CatalogPath),
		slog.Int("window_days", c.WindowDays),
		slog.Int("max_attempts", c.MaxAttempts),
		slog.Int("parallelism", c.Parallelism),
		slog.Duration("request_gap", c.RequestGap),
	)
}

// WorstCaseRun bounds how long one sequential availability run over services
// catalog entries can take: every fetch using all its attempts at the full
// timeout with maximal backoff, plus a token refresh per fetch and the gaps
// between queries.
func (c *Config) WorstCaseRun(services int) time.Duration {
	if services <= 0 {
		return 0
	}

	perFetch := time.Duration(c.MaxAttempts)*c.FetchTimeout + 2*c.AuthTimeout
	for attempt := 1; attempt < c.MaxAttempts; attempt++ {
		perFetch += c.BaseDelay<<min(attempt-1, 16) + c.MaxJitter
	}

	return time.Duration(services)*perFetch + time.Duration(services-1)*c.RequestGap
}
