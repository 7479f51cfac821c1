package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectID is a value object for project identity.
type ProjectID struct{ uuid.UUID }

// NewProjectID creates a new ProjectID from uuid.
func NewProjectID(id uuid.UUID) ProjectID { return ProjectID{UUID: id} }

// String returns the canonical string form.
func (p ProjectID) String() string { return p.UUID.String() }

// IsZero reports whether the ID is unset.
func (p ProjectID) IsZero() bool { return p.UUID == uuid.UUID{} }

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectInactive  ProjectStatus = "inactive"
	ProjectCompleted ProjectStatus = "completed"
)

// ParseProjectStatus maps a boundary status name to a ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch ProjectStatus(s) {
	case ProjectActive, ProjectInactive, ProjectCompleted:
		return ProjectStatus(s), true
	}
	return ProjectActive, false
}

// Project belongs to exactly one organization. Progress and UpdatedAt are
// derived fields owned by the derived-state maintainer; no other component
// writes them.
type Project struct {
	ID             ProjectID
	OrganizationID OrganizationID
	Name           string
	TeamLeaderID   *UserID
	Status         ProjectStatus
	Theme          string
	DueDate        *time.Time
	CreatedAt      time.Time

	// Derived.
	Progress  int
	UpdatedAt time.Time
}

// LedBy reports whether the given user is the project's team leader.
func (p *Project) LedBy(userID UserID) bool {
	return p.TeamLeaderID != nil && *p.TeamLeaderID == userID
}

// ProjectMembership associates an organization member with a project.
type ProjectMembership struct {
	ProjectID ProjectID
	UserID    UserID
	RoleLabel string
	JoinedAt  time.Time
}
