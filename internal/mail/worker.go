package mail

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker processes queued mail tasks. Delivery is a log line until an SMTP
// sender is configured; the queue contract stays the same either way.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 2})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, logger: log.With(slog.String("component", "mail_worker"))}
	mux.HandleFunc(TypePasswordReset, w.handlePasswordReset)
	return w
}

func (w *Worker) handlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var p passwordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.logger.Error("password reset task payload invalid", slog.Any("error", err))
		return err
	}
	w.logger.Info("password reset mail",
		slog.String("email", p.Email),
		slog.String("token", p.Token))
	return nil
}

// Run blocks until Shutdown.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
