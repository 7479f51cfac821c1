package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

const TypeMutation = "mutation:recompute"

// AsynqPublisher enqueues mutation events for the background worker.
type AsynqPublisher struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqPublisher(redisOpt asynq.RedisClientOpt, log zerolog.Logger) *AsynqPublisher {
	return &AsynqPublisher{client: asynq.NewClient(redisOpt), log: log}
}

func (p *AsynqPublisher) Close() error {
	return p.client.Close()
}

func (p *AsynqPublisher) Publish(ctx context.Context, ev domain.MutationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeMutation, payload)
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		p.log.Warn().Err(err).
			Str("entity", string(ev.EntityKind)).
			Str("entity_id", ev.EntityID.String()).
			Msg("enqueue mutation event failed")
		return err
	}
	return nil
}

var _ ports.MutationPublisher = (*AsynqPublisher)(nil)
