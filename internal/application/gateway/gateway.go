// Package gateway is the single entry point for state-changing operations.
// Every mutation runs the same pipeline: authorization gate, referential
// checks, atomic write, then a mutation event handed to the derived-state
// maintainer. Writers on the same project or task are serialized by a
// per-entity lock held across the whole pipeline.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/invite"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

const createAttempts = 5

// Gateway gates and applies all mutations.
type Gateway struct {
	orgs     ports.OrganizationRepository
	members  ports.MembershipRepository
	projects ports.ProjectRepository
	tasks    ports.TaskRepository

	engine    *authz.Engine
	invites   *invite.Service
	publisher ports.MutationPublisher

	locks *keyedMutex
	now   func() time.Time
}

// New builds the mutation gateway.
func New(
	orgs ports.OrganizationRepository,
	members ports.MembershipRepository,
	projects ports.ProjectRepository,
	tasks ports.TaskRepository,
	engine *authz.Engine,
	invites *invite.Service,
	publisher ports.MutationPublisher,
) *Gateway {
	return &Gateway{
		orgs:      orgs,
		members:   members,
		projects:  projects,
		tasks:     tasks,
		engine:    engine,
		invites:   invites,
		publisher: publisher,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// emit publishes a mutation event for a committed write. The write has
// already durably committed at this point, so a failed publish must not fail
// the operation; the maintainer heals via idempotent recomputation.
func (g *Gateway) emit(ctx context.Context, kind domain.EntityKind, id uuid.UUID, change domain.ChangeKind, orgID domain.OrganizationID, projectID domain.ProjectID, at time.Time) {
	_ = g.publisher.Publish(ctx, domain.MutationEvent{
		EntityKind:     kind,
		EntityID:       id,
		ChangeKind:     change,
		OrganizationID: orgID,
		ProjectID:      projectID,
		OccurredAt:     at,
	})
}

// CreateOrganization creates an organization with a fresh invitation code
// and its creator as the founding Administrator, atomically. The creator
// must not already belong to an organization.
func (g *Gateway) CreateOrganization(ctx context.Context, creatorID domain.UserID, name string) (*domain.Organization, error) {
	existing, err := g.members.GetByUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already a member of an organization: %w", domerrors.ErrConflict)
	}
	now := g.now()
	for i := 0; i < createAttempts; i++ {
		code, err := invite.NewCode()
		if err != nil {
			return nil, err
		}
		org := &domain.Organization{
			ID:         domain.NewOrganizationID(uuid.New()),
			Name:       name,
			InviteCode: code,
			CreatedAt:  now,
		}
		founder := &domain.Membership{
			OrganizationID: org.ID,
			UserID:         creatorID,
			Role:           domain.RoleAdministrator,
			CreatedAt:      now,
		}
		err = g.orgs.Create(ctx, org, founder)
		if errors.Is(err, domerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		g.emit(ctx, domain.EntityOrganization, org.ID.UUID, domain.ChangeCreate, org.ID, domain.ProjectID{}, now)
		return org, nil
	}
	return nil, fmt.Errorf("organization creation exhausted %d attempts: %w", createAttempts, domerrors.ErrConflict)
}

// ReissueInviteCode replaces the organization's invitation code.
// Administrator only.
func (g *Gateway) ReissueInviteCode(ctx context.Context, p domain.Principal, orgID domain.OrganizationID) (string, error) {
	unlock := g.locks.lock("org:" + orgID.String())
	defer unlock()

	org, err := g.orgs.GetByID(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org == nil {
		return "", fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionManageSettings, authz.OrganizationResource(orgID)); err != nil {
		return "", err
	}
	code, err := g.invites.Generate(ctx, orgID)
	if err != nil {
		return "", err
	}
	g.emit(ctx, domain.EntityOrganization, orgID.UUID, domain.ChangeUpdate, orgID, domain.ProjectID{}, g.now())
	return code, nil
}

// RedeemInvite joins the user to the code's organization as Member. No
// authorization gate: an unaffiliated caller is exactly who redeems codes.
func (g *Gateway) RedeemInvite(ctx context.Context, code string, userID domain.UserID) (*invite.RedeemResult, error) {
	res, err := g.invites.Redeem(ctx, code, userID)
	if err != nil {
		return nil, err
	}
	if res.Joined {
		g.emit(ctx, domain.EntityMembership, userID.UUID, domain.ChangeCreate, res.OrganizationID, domain.ProjectID{}, g.now())
	}
	return res, nil
}

// ChangeMemberRole atomically overwrites a member's organization role.
// Administrator only. Demoting the last Administrator is rejected with
// ErrInvalidState.
func (g *Gateway) ChangeMemberRole(ctx context.Context, p domain.Principal, orgID domain.OrganizationID, userID domain.UserID, role domain.Role) error {
	unlock := g.locks.lock("member:" + orgID.String() + ":" + userID.String())
	defer unlock()

	if err := g.engine.Check(ctx, p, authz.ActionChangeRole, authz.OrganizationResource(orgID)); err != nil {
		return err
	}
	m, err := g.members.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	if m.Role == domain.RoleAdministrator && role != domain.RoleAdministrator {
		last, err := g.lastAdministrator(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if last {
			return fmt.Errorf("cannot demote the last administrator: %w", domerrors.ErrInvalidState)
		}
	}
	if err := g.members.UpdateRole(ctx, orgID, userID, role); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityMembership, userID.UUID, domain.ChangeUpdate, orgID, domain.ProjectID{}, g.now())
	return nil
}

// RemoveMember removes a user from the organization, cascading their project
// memberships and task assignments and clearing any team-lead assignment they
// hold. Administrator only.
func (g *Gateway) RemoveMember(ctx context.Context, p domain.Principal, orgID domain.OrganizationID, userID domain.UserID) error {
	unlock := g.locks.lock("member:" + orgID.String() + ":" + userID.String())
	defer unlock()

	if err := g.engine.Check(ctx, p, authz.ActionManageMembers, authz.OrganizationResource(orgID)); err != nil {
		return err
	}
	m, err := g.members.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	if m.Role == domain.RoleAdministrator {
		last, err := g.lastAdministrator(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if last {
			return fmt.Errorf("cannot remove the last administrator: %w", domerrors.ErrInvalidState)
		}
	}
	if err := g.members.Remove(ctx, orgID, userID); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityMembership, userID.UUID, domain.ChangeDelete, orgID, domain.ProjectID{}, g.now())
	return nil
}

func (g *Gateway) lastAdministrator(ctx context.Context, orgID domain.OrganizationID, exclude domain.UserID) (bool, error) {
	all, err := g.members.ListByOrganization(ctx, orgID)
	if err != nil {
		return false, err
	}
	for _, m := range all {
		if m.Role == domain.RoleAdministrator && m.UserID != exclude {
			return false, nil
		}
	}
	return true, nil
}

// CreateProjectInput carries the caller-settable project fields. Progress
// and the activity timestamp are derived and never accepted from callers.
type CreateProjectInput struct {
	Name         string
	TeamLeaderID *domain.UserID
	Status       domain.ProjectStatus
	Theme        string
	DueDate      *time.Time
}

// CreateProject creates a project in the principal's organization. A
// TeamLeader creating a project without naming a leader becomes its leader.
// A named team leader is auto-added as a project member in the same atomic
// write.
func (g *Gateway) CreateProject(ctx context.Context, p domain.Principal, in CreateProjectInput) (*domain.Project, error) {
	now := g.now()
	status := in.Status
	if status == "" {
		status = domain.ProjectActive
	}
	proj := &domain.Project{
		ID:             domain.NewProjectID(uuid.New()),
		OrganizationID: p.OrganizationID,
		Name:           in.Name,
		TeamLeaderID:   in.TeamLeaderID,
		Status:         status,
		Theme:          in.Theme,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if p.Role == domain.RoleTeamLeader && proj.TeamLeaderID == nil {
		lid := p.UserID
		proj.TeamLeaderID = &lid
	}
	if err := g.engine.Check(ctx, p, authz.ActionCreate, authz.ProjectResource(proj)); err != nil {
		return nil, err
	}
	var leader *domain.ProjectMembership
	if proj.TeamLeaderID != nil {
		if err := g.requireOrgMember(ctx, p.OrganizationID, *proj.TeamLeaderID); err != nil {
			return nil, err
		}
		leader = &domain.ProjectMembership{
			ProjectID: proj.ID,
			UserID:    *proj.TeamLeaderID,
			RoleLabel: "team_leader",
			JoinedAt:  now,
		}
	}

	unlock := g.locks.lock("project:" + proj.ID.String())
	defer unlock()
	if err := g.projects.Create(ctx, proj, leader); err != nil {
		return nil, err
	}
	g.emit(ctx, domain.EntityProject, proj.ID.UUID, domain.ChangeCreate, proj.OrganizationID, proj.ID, now)
	return proj, nil
}

// UpdateProjectInput applies only the non-nil fields. ClearTeamLeader and
// ClearDueDate distinguish "unset" from "untouched".
type UpdateProjectInput struct {
	Name            *string
	Status          *domain.ProjectStatus
	Theme           *string
	DueDate         *time.Time
	ClearDueDate    bool
	TeamLeaderID    *domain.UserID
	ClearTeamLeader bool
}

// UpdateProject mutates a project. Setting a new team leader grants them
// project membership in the same atomic write if absent.
func (g *Gateway) UpdateProject(ctx context.Context, p domain.Principal, projectID domain.ProjectID, in UpdateProjectInput) (*domain.Project, error) {
	unlock := g.locks.lock("project:" + projectID.String())
	defer unlock()

	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionUpdate, authz.ProjectResource(proj)); err != nil {
		return nil, err
	}
	if in.Name != nil {
		proj.Name = *in.Name
	}
	if in.Status != nil {
		proj.Status = *in.Status
	}
	if in.Theme != nil {
		proj.Theme = *in.Theme
	}
	if in.DueDate != nil {
		proj.DueDate = in.DueDate
	}
	if in.ClearDueDate {
		proj.DueDate = nil
	}
	var leader *domain.ProjectMembership
	if in.TeamLeaderID != nil {
		if err := g.requireOrgMember(ctx, proj.OrganizationID, *in.TeamLeaderID); err != nil {
			return nil, err
		}
		proj.TeamLeaderID = in.TeamLeaderID
		existing, err := g.projects.GetMember(ctx, proj.ID, *in.TeamLeaderID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			leader = &domain.ProjectMembership{
				ProjectID: proj.ID,
				UserID:    *in.TeamLeaderID,
				RoleLabel: "team_leader",
				JoinedAt:  g.now(),
			}
		}
	}
	if in.ClearTeamLeader {
		proj.TeamLeaderID = nil
	}
	if err := g.projects.Update(ctx, proj, leader); err != nil {
		return nil, err
	}
	g.emit(ctx, domain.EntityProject, proj.ID.UUID, domain.ChangeUpdate, proj.OrganizationID, proj.ID, g.now())
	return proj, nil
}

// DeleteProject removes a project, cascading its tasks and memberships.
func (g *Gateway) DeleteProject(ctx context.Context, p domain.Principal, projectID domain.ProjectID) error {
	unlock := g.locks.lock("project:" + projectID.String())
	defer unlock()

	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if proj == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionDelete, authz.ProjectResource(proj)); err != nil {
		return err
	}
	if err := g.projects.Delete(ctx, projectID); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityProject, projectID.UUID, domain.ChangeDelete, proj.OrganizationID, projectID, g.now())
	return nil
}

// AddProjectMember adds an organization member to a project.
func (g *Gateway) AddProjectMember(ctx context.Context, p domain.Principal, projectID domain.ProjectID, userID domain.UserID, roleLabel string) error {
	unlock := g.locks.lock("project:" + projectID.String())
	defer unlock()

	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if proj == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionManageMembers, authz.ProjectResource(proj)); err != nil {
		return err
	}
	if err := g.requireOrgMember(ctx, proj.OrganizationID, userID); err != nil {
		return err
	}
	m := &domain.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		RoleLabel: roleLabel,
		JoinedAt:  g.now(),
	}
	if err := g.projects.AddMember(ctx, m); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityMembership, userID.UUID, domain.ChangeCreate, proj.OrganizationID, projectID, g.now())
	return nil
}

// RemoveProjectMember removes a project membership, unassigning the user
// from the project's tasks. The current team leader cannot be removed while
// still set as leader.
func (g *Gateway) RemoveProjectMember(ctx context.Context, p domain.Principal, projectID domain.ProjectID, userID domain.UserID) error {
	unlock := g.locks.lock("project:" + projectID.String())
	defer unlock()

	proj, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if proj == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionManageMembers, authz.ProjectResource(proj)); err != nil {
		return err
	}
	if proj.LedBy(userID) {
		return fmt.Errorf("user is the project's team leader: %w", domerrors.ErrInvalidState)
	}
	m, err := g.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("project membership: %w", domerrors.ErrNotFound)
	}
	if err := g.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityMembership, userID.UUID, domain.ChangeDelete, proj.OrganizationID, projectID, g.now())
	return nil
}

func (g *Gateway) requireOrgMember(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) error {
	m, err := g.members.Get(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("user %s is not a member of the organization: %w", userID, domerrors.ErrInvalidReference)
	}
	return nil
}
