package http

import (
	"context"
	"log/slog"
)

const serviceName = "auth-service"

// httpLogger tags entries so this adapter's lines stay filterable in
// aggregated output alongside the other layers.
func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logOperationFailure records a request that ended in an error response.
// Server faults log at error, client faults at warn.
func logOperationFailure(ctx context.Context, operation string, statusCode int, code, message string, cause error) {
	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	attrs := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	httpLogger().Log(ctx, level, "http operation failed", attrs...)
}
