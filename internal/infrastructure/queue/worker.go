package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/derived"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// Worker consumes mutation events, recomputes derived state, and emits
// notifications. Handlers are idempotent so at-least-once delivery is safe.
type Worker struct {
	srv        *asynq.Server
	mux        *asynq.ServeMux
	maintainer *derived.Maintainer
	emitter    ports.NotificationEmitter
	log        zerolog.Logger
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, m *derived.Maintainer, e ports.NotificationEmitter, log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, maintainer: m, emitter: e, log: log}
	mux.HandleFunc(TypeMutation, w.handleMutation)
	return w
}

func (w *Worker) handleMutation(ctx context.Context, t *asynq.Task) error {
	var ev domain.MutationEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		w.log.Error().Err(err).Msg("mutation task payload invalid")
		return err
	}
	if err := w.maintainer.OnMutation(ctx, ev); err != nil {
		w.log.Error().Err(err).
			Str("entity", string(ev.EntityKind)).
			Str("entity_id", ev.EntityID.String()).
			Msg("derived-state recompute failed")
		return err
	}
	if w.emitter != nil {
		if err := w.emitter.Emit(ctx, ev); err != nil {
			// Notification failures do not invalidate the recompute.
			w.log.Warn().Err(err).Msg("notification emit failed")
		}
	}
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
