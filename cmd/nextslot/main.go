package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/nextslot/internal/adapter/driven/simplybook"
	httphandler "github.com/ericfisherdev/nextslot/internal/adapter/driving/http"
	"github.com/ericfisherdev/nextslot/internal/application"
	"github.com/ericfisherdev/nextslot/internal/catalog"
	"github.com/ericfisherdev/nextslot/internal/config"
	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// writeSlack is added to the worst-case run time when bounding response writes.
const writeSlack = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded", "config", cfg)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load the service catalog.
	services, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "services", len(services))

	// 4. Wire the upstream adapters. Missing credentials do not stop the
	// server: upstream-backed endpoints answer 500 naming what is missing.
	var (
		availSvc *application.AvailabilityService
		dirSvc   *application.DirectoryService
	)
	creds, configErr := cfg.Credentials()
	if configErr != nil {
		slog.Warn("booking API credentials incomplete, upstream endpoints disabled", "error", configErr)
	} else {
		availSvc, dirSvc, err = newUpstreamServices(cfg, creds, slog.Default())
		if err != nil {
			return err
		}
		slog.Info("booking API client created", "api_mode", cfg.APIMode, "company", creds.Company)
	}

	// 5. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(availSvc, dirSvc, services, configErr, cfg.CacheMaxAge, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WorstCaseRun(len(services)) + writeSlack,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("nextslot started",
		"listen_addr", cfg.ListenAddr,
		"window_days", cfg.WindowDays,
		"parallelism", cfg.Parallelism,
	)

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 7. Graceful shutdown with 10s timeout for in-flight runs.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newUpstreamServices builds the authenticator, session cache, fetcher, slot
// source and directory for the configured API dialect. Both services share
// one session and one retrying fetcher.
func newUpstreamServices(cfg *config.Config, creds model.Credentials, logger *slog.Logger) (*application.AvailabilityService, *application.DirectoryService, error) {
	httpClient := simplybook.NewHTTPClient()

	authOpts := []simplybook.AuthOption{simplybook.WithAuthTimeout(cfg.AuthTimeout)}

	var (
		auth    driven.Authenticator
		baseURL = cfg.BaseURL
		err     error
	)
	switch cfg.APIMode {
	case config.ModeRPC:
		if baseURL == "" {
			baseURL = simplybook.DefaultRPCBaseURL
		}
		auth, err = simplybook.NewRPCAuthenticator(httpClient, baseURL, creds, authOpts...)
	default:
		if baseURL == "" {
			baseURL = simplybook.DefaultRESTBaseURL
		}
		auth, err = simplybook.NewRESTAuthenticator(httpClient, baseURL, creds, authOpts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating authenticator: %w", err)
	}

	sessions := application.NewSessionCache(auth, cfg.SafetyMargin)

	fetcher := simplybook.NewFetcher(httpClient, sessions, creds.Company,
		simplybook.WithMaxAttempts(cfg.MaxAttempts),
		simplybook.WithBaseDelay(cfg.BaseDelay),
		simplybook.WithMaxJitter(cfg.MaxJitter),
		simplybook.WithTimeout(cfg.FetchTimeout),
		simplybook.WithLogger(logger),
	)

	var (
		source driven.SlotSource
		dir    driven.Directory
	)
	if cfg.APIMode == config.ModeRPC {
		source, err = simplybook.NewRPCSlotSource(fetcher, baseURL)
		if err == nil {
			dir, err = simplybook.NewRPCDirectory(fetcher, baseURL)
		}
	} else {
		source, err = simplybook.NewRESTSlotSource(fetcher, baseURL)
		if err == nil {
			dir, err = simplybook.NewRESTDirectory(fetcher, baseURL)
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("creating upstream adapters: %w", err)
	}

	availSvc := application.NewAvailabilityService(source,
		application.WithWindowDays(cfg.WindowDays),
		application.WithMaxDates(cfg.MaxDates),
		application.WithRequestGap(cfg.RequestGap),
		application.WithParallelism(cfg.Parallelism),
		application.WithLogger(logger),
	)
	return availSvc, application.NewDirectoryService(dir, logger), nil
}
