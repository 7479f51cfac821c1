package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationID is a value object for organization identity.
type OrganizationID struct{ uuid.UUID }

// NewOrganizationID creates a new OrganizationID from uuid.
func NewOrganizationID(id uuid.UUID) OrganizationID { return OrganizationID{UUID: id} }

// String returns the canonical string form.
func (o OrganizationID) String() string { return o.UUID.String() }

// IsZero reports whether the ID is unset.
func (o OrganizationID) IsZero() bool { return o.UUID == uuid.UUID{} }

// Organization is the top-level tenant boundary. Its invite code is unique
// across all organizations and immutable once issued; re-issuing replaces it,
// never appends.
type Organization struct {
	ID         OrganizationID
	Name       string
	InviteCode string
	CreatedAt  time.Time
}

// Membership links a user to an organization with a role. A user belongs to
// at most one organization at a time.
type Membership struct {
	OrganizationID OrganizationID
	UserID         UserID
	Role           Role
	CreatedAt      time.Time
}
