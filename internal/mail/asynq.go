package mail

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const TypePasswordReset = "mail:password_reset"

type passwordResetPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Enqueuer hands mail tasks to asynq for out-of-band delivery.
type Enqueuer struct {
	client *asynq.Client
	logger *slog.Logger
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt, log *slog.Logger) *Enqueuer {
	if log == nil {
		log = slog.Default()
	}
	return &Enqueuer{
		client: asynq.NewClient(redisOpt),
		logger: log.With(slog.String("component", "mail")),
	}
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

func (e *Enqueuer) EnqueuePasswordReset(ctx context.Context, email, token string) error {
	payload, err := json.Marshal(passwordResetPayload{Email: email, Token: token})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, asynq.NewTask(TypePasswordReset, payload)); err != nil {
		e.logger.Warn("enqueue password reset failed", slog.Any("error", err))
		return err
	}
	return nil
}
