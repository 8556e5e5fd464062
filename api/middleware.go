package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

const requestIdHeader = "X-Request-Id"

// requestIdMiddleware tags the request logger and the response with a fresh id.
// It must run inside middleware.AccessLogging, which puts the logger in the context.
func (a *API) requestIdMiddleware() middleware.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestId := uuid.New().String()

			logger, ok := middleware.GetLoggerFromCtx(r.Context())
			if !ok {
				logger = a.logger
			}
			ctx := middleware.CtxWithLogger(r.Context(), logger.With(slog.String("request-id", requestId)))

			w.Header().Set(requestIdHeader, requestId)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *API) corsMiddleware() middleware.MiddlewareFunc {
	var serverCors *cors.Cors

	switch {
	case a.env == LOCAL || len(a.corsOrigins) == 0:
		serverCors = cors.AllowAll()
	default:
		serverCors = cors.New(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			MaxAge:         300,
		})
	}

	return serverCors.Handler
}

// getLoggerFromCtx falls back to the default logger outside of a request.
func getLoggerFromCtx(ctx context.Context) *slog.Logger {
	if logger, ok := middleware.GetLoggerFromCtx(ctx); ok {
		return logger
	}
	return slog.Default()
}
