package queue

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// NoopPublisher discards mutation events. Useful in tests that do not
// exercise derived state.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) Publish(ctx context.Context, ev domain.MutationEvent) error {
	return nil
}

var _ ports.MutationPublisher = (*NoopPublisher)(nil)
