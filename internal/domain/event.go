package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies the entity a mutation touched.
type EntityKind string

const (
	EntityOrganization EntityKind = "organization"
	EntityProject      EntityKind = "project"
	EntityTask         EntityKind = "task"
	EntityMembership   EntityKind = "membership"
)

// ChangeKind identifies the kind of committed change.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// MutationEvent notifies the derived-state maintainer of a committed state
// change. It is emitted only after the write durably commits; delivery is
// at-least-once and handlers must be idempotent.
type MutationEvent struct {
	EntityKind     EntityKind     `json:"entity_kind"`
	EntityID       uuid.UUID      `json:"entity_id"`
	ChangeKind     ChangeKind     `json:"change_kind"`
	OrganizationID OrganizationID `json:"organization_id"`
	// ProjectID is set for task and project-membership events so the
	// maintainer knows which project's derived fields to recompute.
	ProjectID  ProjectID `json:"project_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
