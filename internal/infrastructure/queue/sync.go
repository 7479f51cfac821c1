package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/derived"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// SyncPublisher dispatches mutation events inline, without Redis. Derived
// state is recomputed before Publish returns, so reads after a mutation
// always observe fresh progress.
type SyncPublisher struct {
	maintainer *derived.Maintainer
	emitter    ports.NotificationEmitter
	log        zerolog.Logger
}

func NewSyncPublisher(m *derived.Maintainer, e ports.NotificationEmitter, log zerolog.Logger) *SyncPublisher {
	return &SyncPublisher{maintainer: m, emitter: e, log: log}
}

func (p *SyncPublisher) Publish(ctx context.Context, ev domain.MutationEvent) error {
	if err := p.maintainer.OnMutation(ctx, ev); err != nil {
		p.log.Error().Err(err).
			Str("entity", string(ev.EntityKind)).
			Str("entity_id", ev.EntityID.String()).
			Msg("derived-state recompute failed")
		return err
	}
	if p.emitter != nil {
		if err := p.emitter.Emit(ctx, ev); err != nil {
			p.log.Warn().Err(err).Msg("notification emit failed")
		}
	}
	return nil
}

var _ ports.MutationPublisher = (*SyncPublisher)(nil)
