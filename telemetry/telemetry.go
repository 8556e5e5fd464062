package telemetry

import (
	"context"
	"log/slog"

	icaatelemetry "github.com/International-Combat-Archery-Alliance/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
)

type Config struct {
	// Endpoint is an OTLP/gRPC collector host:port. Empty turns tracing off.
	Endpoint    string
	ServiceName string
	APIKey      string
	Insecure    bool
}

// Setup installs the global tracer provider. When tracing is off no provider
// is registered and the returned shutdown does nothing.
//
// The shutdown function flushes pending spans and should be deferred by the caller.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if cfg.Endpoint == "" {
		return noop, nil
	}

	shutdown, _, err = icaatelemetry.Init(ctx, icaatelemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Insecure:    cfg.Insecure,
		ErrorHandler: func(err error) {
			logger.Warn("trace export failed", slog.String("error", err.Error()))
		},
	})
	if err != nil {
		return noop, err
	}

	return shutdown, nil
}

// InstrumentAWS adds a client span to every AWS SDK call made with cfg.
func InstrumentAWS(cfg *aws.Config) {
	icaatelemetry.InstrumentAWSConfig(cfg)
}
