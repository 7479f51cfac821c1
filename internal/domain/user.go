package domain

import "github.com/google/uuid"

// UserID is a value object for user identity.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// IsZero reports whether the ID is unset.
func (u UserID) IsZero() bool { return u.UUID == uuid.UUID{} }

// Principal is the resolved, authenticated caller together with their
// organization affiliation. Credential storage and verification live in the
// external identity provider; only the identity crosses into this core.
type Principal struct {
	UserID         UserID
	OrganizationID OrganizationID
	Role           Role
}

// HasOrganization reports whether the principal is affiliated with any
// organization. An unaffiliated principal can only redeem an invite code or
// create an organization.
func (p Principal) HasOrganization() bool { return !p.OrganizationID.IsZero() }
