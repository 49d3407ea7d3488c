package config

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// allConfigKeys lists every NEXTSLOT_ env var that Load() reads.
var allConfigKeys = []string{
	"NEXTSLOT_API_MODE",
	"NEXTSLOT_COMPANY",
	"NEXTSLOT_LOGIN",
	"NEXTSLOT_PASSWORD",
	"NEXTSLOT_API_KEY",
	"NEXTSLOT_BASE_URL",
	"NEXTSLOT_LISTEN_ADDR",
	"NEXTSLOT_CATALOG_PATH",
	"NEXTSLOT_WINDOW_DAYS",
	"NEXTSLOT_MAX_DATES",
	"NEXTSLOT_MAX_ATTEMPTS",
	"NEXTSLOT_PARALLELISM",
	"NEXTSLOT_BASE_DELAY",
	"NEXTSLOT_MAX_JITTER",
	"NEXTSLOT_REQUEST_GAP",
	"NEXTSLOT_SAFETY_MARGIN",
	"NEXTSLOT_AUTH_TIMEOUT",
	"NEXTSLOT_FETCH_TIMEOUT",
	"NEXTSLOT_CACHE_MAX_AGE",
}

// isolateConfigEnv saves and unsets all NEXTSLOT_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeREST, cfg.APIMode)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, 30, cfg.WindowDays)
	assert.Equal(t, 3, cfg.MaxDates)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 0, cfg.Parallelism)
	assert.Equal(t, time.Second, cfg.BaseDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.MaxJitter)
	assert.Equal(t, 2*time.Second, cfg.RequestGap)
	assert.Equal(t, 5*time.Minute, cfg.SafetyMargin)
	assert.Equal(t, 10*time.Second, cfg.AuthTimeout)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheMaxAge)
	assert.Empty(t, cfg.BaseURL)
	assert.Empty(t, cfg.CatalogPath)
}

func TestLoad_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NEXTSLOT_API_MODE", " RPC ")
	t.Setenv("NEXTSLOT_COMPANY", "acme")
	t.Setenv("NEXTSLOT_API_KEY", "key-123")
	t.Setenv("NEXTSLOT_BASE_URL", "https://example.test")
	t.Setenv("NEXTSLOT_LISTEN_ADDR", ":9090")
	t.Setenv("NEXTSLOT_CATALOG_PATH", "/etc/nextslot/catalog.toml")
	t.Setenv("NEXTSLOT_WINDOW_DAYS", "14")
	t.Setenv("NEXTSLOT_PARALLELISM", "3")
	t.Setenv("NEXTSLOT_REQUEST_GAP", "500ms")
	t.Setenv("NEXTSLOT_CACHE_MAX_AGE", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeRPC, cfg.APIMode)
	assert.Equal(t, "acme", cfg.Company)
	assert.Equal(t, "key-123", cfg.APIKey)
	assert.Equal(t, "https://example.test", cfg.BaseURL)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/etc/nextslot/catalog.toml", cfg.CatalogPath)
	assert.Equal(t, 14, cfg.WindowDays)
	assert.Equal(t, 3, cfg.Parallelism)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestGap)
	assert.Zero(t, cfg.CacheMaxAge)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]struct {
		key, value, want string
	}{
		"unknown mode":      {"NEXTSLOT_API_MODE", "soap", "NEXTSLOT_API_MODE"},
		"bad duration":      {"NEXTSLOT_BASE_DELAY", "soon", "BaseDelay"},
		"bad integer":       {"NEXTSLOT_MAX_ATTEMPTS", "many", "MaxAttempts"},
		"zero attempts":     {"NEXTSLOT_MAX_ATTEMPTS", "0", "NEXTSLOT_MAX_ATTEMPTS"},
		"zero window":       {"NEXTSLOT_WINDOW_DAYS", "0", "NEXTSLOT_WINDOW_DAYS"},
		"negative gap":      {"NEXTSLOT_REQUEST_GAP", "-1s", "NEXTSLOT_REQUEST_GAP"},
		"negative parallel": {"NEXTSLOT_PARALLELISM", "-2", "NEXTSLOT_PARALLELISM"},
		"zero timeout":      {"NEXTSLOT_FETCH_TIMEOUT", "0s", "NEXTSLOT_FETCH_TIMEOUT"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCredentials_REST(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NEXTSLOT_COMPANY", "acme")
	t.Setenv("NEXTSLOT_LOGIN", "admin")
	t.Setenv("NEXTSLOT_PASSWORD", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	creds, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Equal(t, model.Credentials{Company: "acme", Login: "admin", Secret: "s3cret"}, creds)
}

func TestCredentials_RESTMissing(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NEXTSLOT_LOGIN", "admin")
	t.Setenv("NEXTSLOT_PASSWORD", "   ")

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.Credentials()

	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"NEXTSLOT_COMPANY", "NEXTSLOT_PASSWORD"}, cfgErr.Missing)
	assert.True(t, model.IsFatal(err))
}

func TestCredentials_RPCNeedsAPIKeyOnly(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NEXTSLOT_API_MODE", "rpc")
	t.Setenv("NEXTSLOT_COMPANY", "acme")

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.Credentials()
	var cfgErr *model.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"NEXTSLOT_API_KEY"}, cfgErr.Missing)

	t.Setenv("NEXTSLOT_API_KEY", "key-123")
	cfg, err = Load()
	require.NoError(t, err)
	creds, err := cfg.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "key-123", creds.APIKey)
}

func TestConfig_LogValueOmitsSecrets(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("NEXTSLOT_COMPANY", "acme")
	t.Setenv("NEXTSLOT_PASSWORD", "s3cret")
	t.Setenv("NEXTSLOT_API_KEY", "key-123")

	cfg, err := Load()
	require.NoError(t, err)

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config loaded", "config", cfg)

	assert.Contains(t, buf.String(), "company=acme")
	assert.NotContains(t, buf.String(), "s3cret")
	assert.NotContains(t, buf.String(), "key-123")
}

func TestConfig_WorstCaseRunCoversDefaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	// Per fetch: 5 x 15s attempts, 2 x 10s auth, 1+2+4+8s backoff, 4 x 200ms jitter.
	perFetch := 75*time.Second + 20*time.Second + 15*time.Second + 800*time.Millisecond
	want := 5*perFetch + 4*2*time.Second

	assert.Equal(t, want, cfg.WorstCaseRun(5))
	assert.Greater(t, cfg.WorstCaseRun(5), 7*time.Minute)
	assert.Zero(t, cfg.WorstCaseRun(0))
}
