package authz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/persistence/memory"
)

type fixture struct {
	store  *memory.Store
	engine *Engine

	orgID    domain.OrganizationID
	otherOrg domain.OrganizationID

	admin   domain.Principal
	leader  domain.Principal
	member  domain.Principal
	outside domain.Principal

	ledProject   *domain.Project
	otherProject *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now()

	orgID := domain.NewOrganizationID(uuid.New())
	adminID := domain.NewUserID(uuid.New())
	if err := store.Create(ctx, &domain.Organization{ID: orgID, Name: "acme", InviteCode: "ACMECODE22", CreatedAt: now},
		&domain.Membership{OrganizationID: orgID, UserID: adminID, Role: domain.RoleAdministrator, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	otherOrg := domain.NewOrganizationID(uuid.New())
	outsiderID := domain.NewUserID(uuid.New())
	if err := store.Create(ctx, &domain.Organization{ID: otherOrg, Name: "rival", InviteCode: "RIVALCODE2", CreatedAt: now},
		&domain.Membership{OrganizationID: otherOrg, UserID: outsiderID, Role: domain.RoleAdministrator, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	leaderID := domain.NewUserID(uuid.New())
	memberID := domain.NewUserID(uuid.New())
	for _, m := range []*domain.Membership{
		{OrganizationID: orgID, UserID: leaderID, Role: domain.RoleTeamLeader, CreatedAt: now},
		{OrganizationID: orgID, UserID: memberID, Role: domain.RoleMember, CreatedAt: now},
	} {
		if err := store.Add(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	projects := store.Projects()
	led := &domain.Project{ID: domain.NewProjectID(uuid.New()), OrganizationID: orgID, Name: "led", TeamLeaderID: &leaderID, Status: domain.ProjectActive, CreatedAt: now, UpdatedAt: now}
	if err := projects.Create(ctx, led, &domain.ProjectMembership{ProjectID: led.ID, UserID: leaderID, RoleLabel: "team_leader", JoinedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := projects.AddMember(ctx, &domain.ProjectMembership{ProjectID: led.ID, UserID: memberID, JoinedAt: now}); err != nil {
		t.Fatal(err)
	}
	other := &domain.Project{ID: domain.NewProjectID(uuid.New()), OrganizationID: orgID, Name: "other", Status: domain.ProjectActive, CreatedAt: now, UpdatedAt: now}
	if err := projects.Create(ctx, other, nil); err != nil {
		t.Fatal(err)
	}

	return &fixture{
		store:        store,
		engine:       NewEngine(projects),
		orgID:        orgID,
		otherOrg:     otherOrg,
		admin:        domain.Principal{UserID: adminID, OrganizationID: orgID, Role: domain.RoleAdministrator},
		leader:       domain.Principal{UserID: leaderID, OrganizationID: orgID, Role: domain.RoleTeamLeader},
		member:       domain.Principal{UserID: memberID, OrganizationID: orgID, Role: domain.RoleMember},
		outside:      domain.Principal{UserID: outsiderID, OrganizationID: otherOrg, Role: domain.RoleAdministrator},
		ledProject:   led,
		otherProject: other,
	}
}

func wantReason(t *testing.T, err error, reason domerrors.DenyReason) {
	t.Helper()
	de, ok := domerrors.AsDenied(err)
	if !ok {
		t.Fatalf("expected a denial, got %v", err)
	}
	if de.Reason != reason {
		t.Fatalf("denial reason = %q, want %q", de.Reason, reason)
	}
}

func TestCrossOrganizationDeniedBeforeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// An administrator of another organization is still out of scope; the
	// reason must name the scope violation, not the role.
	err := f.engine.Check(ctx, f.outside, ActionDelete, ProjectResource(f.ledProject))
	wantReason(t, err, domerrors.CrossOrganization)

	err = f.engine.Check(ctx, f.outside, ActionView, OrganizationResource(f.orgID))
	wantReason(t, err, domerrors.CrossOrganization)
}

func TestUnaffiliatedPrincipalDenied(t *testing.T) {
	f := newFixture(t)
	nobody := domain.Principal{UserID: domain.NewUserID(uuid.New())}
	err := f.engine.Check(context.Background(), nobody, ActionView, OrganizationResource(f.orgID))
	wantReason(t, err, domerrors.CrossOrganization)
}

func TestAdministratorAllowedEverywhereInScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checks := []struct {
		action Action
		res    Resource
	}{
		{ActionManageSettings, OrganizationResource(f.orgID)},
		{ActionChangeRole, OrganizationResource(f.orgID)},
		{ActionDelete, ProjectResource(f.ledProject)},
		{ActionUpdate, ProjectResource(f.otherProject)},
		{ActionManageMembers, ProjectResource(f.otherProject)},
	}
	for _, c := range checks {
		if err := f.engine.Check(ctx, f.admin, c.action, c.res); err != nil {
			t.Errorf("admin %s on %s: unexpected denial %v", c.action, c.res.Kind, err)
		}
	}
}

func TestTeamLeaderScopedToLedProjects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.Check(ctx, f.leader, ActionUpdate, ProjectResource(f.ledProject)); err != nil {
		t.Fatalf("leader should manage own project: %v", err)
	}
	if err := f.engine.Check(ctx, f.leader, ActionView, ProjectResource(f.otherProject)); err != nil {
		t.Fatalf("leader should view any project in the organization: %v", err)
	}
	err := f.engine.Check(ctx, f.leader, ActionUpdate, ProjectResource(f.otherProject))
	wantReason(t, err, domerrors.NotAssigned)

	err = f.engine.Check(ctx, f.leader, ActionChangeRole, OrganizationResource(f.orgID))
	wantReason(t, err, domerrors.InsufficientRole)
}

func TestMemberProjectVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.Check(ctx, f.member, ActionView, ProjectResource(f.ledProject)); err != nil {
		t.Fatalf("member should view a project they belong to: %v", err)
	}
	err := f.engine.Check(ctx, f.member, ActionView, ProjectResource(f.otherProject))
	wantReason(t, err, domerrors.NotAssigned)

	err = f.engine.Check(ctx, f.member, ActionUpdate, ProjectResource(f.ledProject))
	wantReason(t, err, domerrors.InsufficientRole)

	err = f.engine.Check(ctx, f.member, ActionManageSettings, OrganizationResource(f.orgID))
	wantReason(t, err, domerrors.InsufficientRole)
}

func TestMemberTaskRights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	assigned := &domain.Task{ID: domain.NewTaskID(uuid.New()), ProjectID: f.ledProject.ID, Title: "mine", Assignees: []domain.UserID{f.member.UserID}, CreatedAt: now, UpdatedAt: now}
	unassigned := &domain.Task{ID: domain.NewTaskID(uuid.New()), ProjectID: f.ledProject.ID, Title: "theirs", CreatedAt: now, UpdatedAt: now}

	if err := f.engine.Check(ctx, f.member, ActionUpdate, TaskResource(f.ledProject, assigned)); err != nil {
		t.Fatalf("member should mutate an assigned task: %v", err)
	}
	err := f.engine.Check(ctx, f.member, ActionUpdate, TaskResource(f.ledProject, unassigned))
	wantReason(t, err, domerrors.NotAssigned)

	if err := f.engine.Check(ctx, f.member, ActionView, TaskResource(f.ledProject, unassigned)); err != nil {
		t.Fatalf("project membership should grant task view: %v", err)
	}
	err = f.engine.Check(ctx, f.member, ActionManageMembers, TaskResource(f.ledProject, assigned))
	wantReason(t, err, domerrors.InsufficientRole)
}

func TestTeamLeaderTaskRightsFollowProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	task := &domain.Task{ID: domain.NewTaskID(uuid.New()), ProjectID: f.otherProject.ID, Title: "t", CreatedAt: now, UpdatedAt: now}

	if err := f.engine.Check(ctx, f.leader, ActionView, TaskResource(f.otherProject, task)); err != nil {
		t.Fatalf("leader should view tasks anywhere in the organization: %v", err)
	}
	err := f.engine.Check(ctx, f.leader, ActionDelete, TaskResource(f.otherProject, task))
	wantReason(t, err, domerrors.NotAssigned)
}
