package ports

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// MutationPublisher hands committed mutation events to the derived-state
// maintainer. Publish is called only after the write durably commits; the
// path behind it must guarantee at-least-once delivery.
type MutationPublisher interface {
	Publish(ctx context.Context, ev domain.MutationEvent) error
}
