package ports

import (
	"context"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// NotificationEmitter exposes committed mutation events to the external
// notification layer as (entityKind, entityId, changeKind, timestamp)
// tuples. This core does not persist an event log itself.
type NotificationEmitter interface {
	Emit(ctx context.Context, ev domain.MutationEvent) error
}
