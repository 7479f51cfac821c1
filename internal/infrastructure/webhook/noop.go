package webhook

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// NoopEmitter discards mutation events when WEBHOOK_URL is not set.
type NoopEmitter struct{}

// NewNoopEmitter returns a NotificationEmitter that discards all events.
func NewNoopEmitter() *NoopEmitter {
	return &NoopEmitter{}
}

// Emit implements ports.NotificationEmitter.
func (e *NoopEmitter) Emit(ctx context.Context, ev domain.MutationEvent) error {
	return nil
}

var _ ports.NotificationEmitter = (*NoopEmitter)(nil)
