package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/International-Combat-Archery-Alliance/team-tickets/api"
	"github.com/International-Combat-Archery-Alliance/team-tickets/config"
	"github.com/International-Combat-Archery-Alliance/team-tickets/registration"
	"github.com/International-Combat-Archery-Alliance/team-tickets/telemetry"
)

const (
	shutdownTimeout   = 15 * time.Second
	traceFlushTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	env := api.Environment(cfg.Environment)
	logger := newLogger(env)
	slog.SetDefault(logger)

	if err := run(cfg, env, logger); err != nil {
		logger.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func run(cfg *config.Config, env api.Environment, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		APIKey:      cfg.Tracing.APIKey,
		Insecure:    cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	deps, err := newDependencies(ctx, cfg, logger, &awsConfigLoader{})
	if err != nil {
		return fmt.Errorf("failed to set up dependencies: %w", err)
	}

	issuer := registration.NewIssuer(deps.db, deps.uploader, deps.emailSender, registration.IssuerConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		FromAddress:   cfg.Mail.From,
		TeamSize:      registration.TeamSizeRule{RequiredMembers: cfg.RequiredMembers},
		EntryFee: registration.EntryFee{
			Amount:   cfg.EntryFee.Amount,
			Currency: cfg.EntryFee.Currency,
		},
	})

	retrier := registration.NewRetrier(deps.db, issuer, logger, cfg.Delivery.MaxAttempts)
	retrierDone := make(chan struct{})
	go func() {
		defer close(retrierDone)
		retrier.Run(ctx, cfg.Delivery.RetryInterval)
	}()

	ticketAPI := api.NewAPI(deps.db, issuer, deps.uploader, logger, env, cfg.AdminEmail, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      ticketAPI.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("address", server.Addr),
			slog.String("environment", cfg.Environment),
			slog.String("store", cfg.Store),
			slog.String("uploads", cfg.Uploads),
			slog.String("mail-provider", cfg.Mail.Provider),
			slog.Bool("tracing", cfg.Tracing.Endpoint != ""),
		)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		stop()
		<-retrierDone
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.String("error", closeErr.Error()))
			}
		}
		<-retrierDone
	}

	return nil
}

func newLogger(env api.Environment) *slog.Logger {
	if env == api.LOCAL {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
