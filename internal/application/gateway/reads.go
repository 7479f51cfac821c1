package gateway

import (
	"context"
	"fmt"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// Reads are permission-scoped projections over the membership store plus the
// maintainer-owned derived fields. They never block writers and never
// re-derive aggregates themselves.

// ProjectDetail is the read projection of a project, including its derived
// progress and the counts the presentation layer renders.
type ProjectDetail struct {
	Project     *domain.Project
	TaskCount   int
	MemberCount int
	Members     []*domain.ProjectMembership
}

// GetProject returns the project detail if the principal may view it.
func (g *Gateway) GetProject(ctx context.Context, p domain.Principal, projectID domain.ProjectID) (*ProjectDetail, error) {
	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionView, authz.ProjectResource(proj)); err != nil {
		return nil, err
	}
	counts, err := g.tasks.CountByStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	members, err := g.projects.ListMembers(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{
		Project:     proj,
		TaskCount:   counts.Total(),
		MemberCount: len(members),
		Members:     members,
	}, nil
}

// ListProjects returns the projects visible to the principal: all of the
// organization's projects for TeamLeader and Administrator, only assigned
// projects for Member.
func (g *Gateway) ListProjects(ctx context.Context, p domain.Principal) ([]*domain.Project, error) {
	if !p.HasOrganization() {
		return nil, domerrors.Denied(domerrors.CrossOrganization)
	}
	if p.Role.AtLeast(domain.RoleTeamLeader) {
		return g.projects.ListByOrganization(ctx, p.OrganizationID)
	}
	return g.projects.ListForUser(ctx, p.OrganizationID, p.UserID)
}

// GetTask returns the task if the principal may view it.
func (g *Gateway) GetTask(ctx context.Context, p domain.Principal, taskID domain.TaskID) (*domain.Task, error) {
	task, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	proj, err := g.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionView, authz.TaskResource(proj, task)); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns a project's tasks if the principal may view the project.
func (g *Gateway) ListTasks(ctx context.Context, p domain.Principal, projectID domain.ProjectID) ([]*domain.Task, error) {
	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionView, authz.ProjectResource(proj)); err != nil {
		return nil, err
	}
	return g.tasks.ListByProject(ctx, projectID)
}

// ListAssignedTasks returns the principal's own assigned tasks.
func (g *Gateway) ListAssignedTasks(ctx context.Context, p domain.Principal) ([]*domain.Task, error) {
	if !p.HasOrganization() {
		return nil, domerrors.Denied(domerrors.CrossOrganization)
	}
	return g.tasks.ListAssigned(ctx, p.OrganizationID, p.UserID)
}

// GetOrganization returns the principal's organization.
func (g *Gateway) GetOrganization(ctx context.Context, p domain.Principal, orgID domain.OrganizationID) (*domain.Organization, error) {
	if err := g.engine.Check(ctx, p, authz.ActionView, authz.OrganizationResource(orgID)); err != nil {
		return nil, err
	}
	org, err := g.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	return org, nil
}

// ListMembers returns the organization's memberships.
func (g *Gateway) ListMembers(ctx context.Context, p domain.Principal, orgID domain.OrganizationID) ([]*domain.Membership, error) {
	if err := g.engine.Check(ctx, p, authz.ActionView, authz.OrganizationResource(orgID)); err != nil {
		return nil, err
	}
	return g.members.ListByOrganization(ctx, orgID)
}
