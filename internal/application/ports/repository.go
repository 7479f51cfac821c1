package ports

import (
	"context"
	"time"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

// OrganizationRepository defines persistence for organizations. Lookups
// return (nil, nil) when the row does not exist; writes that violate the
// invite-code uniqueness constraint return domain/errors.ErrConflict.
type OrganizationRepository interface {
	// Create writes the organization and its founding membership in one
	// atomic unit.
	Create(ctx context.Context, org *domain.Organization, founder *domain.Membership) error
	GetByID(ctx context.Context, id domain.OrganizationID) (*domain.Organization, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Organization, error)
	UpdateName(ctx context.Context, id domain.OrganizationID, name string) error
	UpdateInviteCode(ctx context.Context, id domain.OrganizationID, code string) error
	// Delete cascades memberships, projects and tasks of the organization.
	Delete(ctx context.Context, id domain.OrganizationID) error
}

// MembershipRepository defines persistence for organization memberships.
type MembershipRepository interface {
	// Add returns domain/errors.ErrConflict when the membership already exists.
	Add(ctx context.Context, m *domain.Membership) error
	Get(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error)
	// GetByUser returns the user's single active membership, or (nil, nil).
	GetByUser(ctx context.Context, userID domain.UserID) (*domain.Membership, error)
	UpdateRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role domain.Role) error
	// Remove also cascades the user's project memberships and task
	// assignments within the organization.
	Remove(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) error
	ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error)
}

// ProjectRepository defines persistence for projects and project
// memberships. Create and Update apply the optional leader membership in the
// same atomic write as the project row.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error
	GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error)
	Update(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error
	// Delete cascades tasks and project memberships.
	Delete(ctx context.Context, id domain.ProjectID) error
	ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Project, error)
	ListForUser(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Project, error)
	// SetDerived writes the maintainer-owned fields. Only the derived-state
	// maintainer calls it.
	SetDerived(ctx context.Context, id domain.ProjectID, progress int, updatedAt time.Time) error

	AddMember(ctx context.Context, m *domain.ProjectMembership) error
	// RemoveMember also unassigns the user from the project's tasks.
	RemoveMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) error
	GetMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (*domain.ProjectMembership, error)
	ListMembers(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectMembership, error)
	CountMembers(ctx context.Context, projectID domain.ProjectID) (int, error)
}

// StatusCounts are per-project task counts grouped by status.
type StatusCounts struct {
	ToDo       int
	InProgress int
	Done       int
}

// Total returns the task count across all statuses.
func (c StatusCounts) Total() int { return c.ToDo + c.InProgress + c.Done }

// TaskRepository defines persistence for tasks. Create and Update write the
// task row and its assignee set in one atomic unit.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id domain.TaskID) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id domain.TaskID) error
	ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error)
	ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Task, error)
	ListAssigned(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Task, error)
	CountByStatus(ctx context.Context, projectID domain.ProjectID) (StatusCounts, error)
}
