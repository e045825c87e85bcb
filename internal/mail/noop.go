package mail

import (
	"context"
	"log/slog"
)

// NoopEnqueuer stands in when Redis/asynq is not configured. Reset tokens are
// logged so local development still has a way to complete the flow.
type NoopEnqueuer struct {
	logger *slog.Logger
}

func NewNoopEnqueuer(log *slog.Logger) *NoopEnqueuer {
	if log == nil {
		log = slog.Default()
	}
	return &NoopEnqueuer{logger: log.With(slog.String("component", "mail"))}
}

func (e *NoopEnqueuer) EnqueuePasswordReset(ctx context.Context, email, token string) error {
	e.logger.Info("password reset token issued (mail disabled)",
		slog.String("email", email),
		slog.String("token", token))
	return nil
}
