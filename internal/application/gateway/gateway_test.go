package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/derived"
	"github.com/yedlingit/TeamFlow-sub001/internal/application/invite"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/persistence/memory"
	"github.com/yedlingit/TeamFlow-sub001/internal/infrastructure/queue"
)

// env wires the gateway against the in-memory store with synchronous
// mutation dispatch, so derived state is fresh immediately after each call.
type env struct {
	store      *memory.Store
	gw         *Gateway
	maintainer *derived.Maintainer

	orgID  domain.OrganizationID
	admin  domain.Principal
	leader domain.Principal
	member domain.Principal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	projects := store.Projects()
	tasks := store.Tasks()

	maintainer := derived.NewMaintainer(projects, tasks, store)
	publisher := queue.NewSyncPublisher(maintainer, nil, zerolog.Nop())
	engine := authz.NewEngine(projects)
	invites := invite.NewService(store, store)
	gw := New(store, store, projects, tasks, engine, invites, publisher)

	adminID := domain.NewUserID(uuid.New())
	org, err := gw.CreateOrganization(ctx, adminID, "acme")
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}

	leaderID := domain.NewUserID(uuid.New())
	memberID := domain.NewUserID(uuid.New())
	for _, uid := range []domain.UserID{leaderID, memberID} {
		if _, err := gw.RedeemInvite(ctx, org.InviteCode, uid); err != nil {
			t.Fatalf("redeem: %v", err)
		}
	}
	admin := domain.Principal{UserID: adminID, OrganizationID: org.ID, Role: domain.RoleAdministrator}
	if err := gw.ChangeMemberRole(ctx, admin, org.ID, leaderID, domain.RoleTeamLeader); err != nil {
		t.Fatalf("promote leader: %v", err)
	}

	return &env{
		store:      store,
		gw:         gw,
		maintainer: maintainer,
		orgID:      org.ID,
		admin:      admin,
		leader:     domain.Principal{UserID: leaderID, OrganizationID: org.ID, Role: domain.RoleTeamLeader},
		member:     domain.Principal{UserID: memberID, OrganizationID: org.ID, Role: domain.RoleMember},
	}
}

func (e *env) createProject(t *testing.T, name string) *domain.Project {
	t.Helper()
	proj, err := e.gw.CreateProject(context.Background(), e.leader, CreateProjectInput{Name: name})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return proj
}

func TestCreateOrganizationBootstrapsAdministrator(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m, err := e.store.Get(ctx, e.orgID, e.admin.UserID)
	if err != nil || m == nil {
		t.Fatalf("founder membership missing: %v %v", m, err)
	}
	if m.Role != domain.RoleAdministrator {
		t.Fatalf("founder role = %v, want RoleAdministrator", m.Role)
	}
	org, err := e.store.GetByID(ctx, e.orgID)
	if err != nil || org == nil {
		t.Fatalf("organization missing: %v", err)
	}
	if len(org.InviteCode) != 10 {
		t.Fatalf("invite code %q should be 10 characters", org.InviteCode)
	}
}

func TestCreateOrganizationWhileAffiliatedConflicts(t *testing.T) {
	e := newEnv(t)
	_, err := e.gw.CreateOrganization(context.Background(), e.member.UserID, "second")
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestReissueInviteCodeAdministratorOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	code, err := e.gw.ReissueInviteCode(ctx, e.admin, e.orgID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	org, _ := e.store.GetByID(ctx, e.orgID)
	if org.InviteCode != code {
		t.Fatalf("stored code %q, want %q", org.InviteCode, code)
	}

	_, err = e.gw.ReissueInviteCode(ctx, e.leader, e.orgID)
	de, ok := domerrors.AsDenied(err)
	if !ok || de.Reason != domerrors.InsufficientRole {
		t.Fatalf("leader reissue should be denied insufficient_role, got %v", err)
	}
}

func TestChangeMemberRoleLastAdministratorGuard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.gw.ChangeMemberRole(ctx, e.admin, e.orgID, e.admin.UserID, domain.RoleMember)
	if !errors.Is(err, domerrors.ErrInvalidState) {
		t.Fatalf("demoting the only administrator should be ErrInvalidState, got %v", err)
	}

	// With a second administrator the demotion goes through.
	if err := e.gw.ChangeMemberRole(ctx, e.admin, e.orgID, e.member.UserID, domain.RoleAdministrator); err != nil {
		t.Fatalf("promote second admin: %v", err)
	}
	if err := e.gw.ChangeMemberRole(ctx, e.admin, e.orgID, e.admin.UserID, domain.RoleMember); err != nil {
		t.Fatalf("demotion with another administrator present: %v", err)
	}
}

func TestRemoveMemberCascadesAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "cascade")

	if err := e.gw.AddProjectMember(ctx, e.leader, proj.ID, e.member.UserID, ""); err != nil {
		t.Fatalf("add project member: %v", err)
	}
	task, err := e.gw.CreateTask(ctx, e.leader, CreateTaskInput{
		ProjectID: proj.ID,
		Title:     "doomed",
		Assignees: []domain.UserID{e.member.UserID},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := e.gw.RemoveMember(ctx, e.admin, e.orgID, e.member.UserID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	got, err := e.store.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Assignees) != 0 {
		t.Fatalf("task should be unassigned after member removal, assignees = %v", got.Assignees)
	}
	if m, _ := e.store.Projects().GetMember(ctx, proj.ID, e.member.UserID); m != nil {
		t.Fatal("project membership should be gone")
	}
}

func TestRemoveMemberClearsLedProjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "orphaned")
	if proj.TeamLeaderID == nil || *proj.TeamLeaderID != e.leader.UserID {
		t.Fatalf("precondition: project should be led by the leader, got %v", proj.TeamLeaderID)
	}

	if err := e.gw.RemoveMember(ctx, e.admin, e.orgID, e.leader.UserID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	got, err := e.store.Projects().GetByID(ctx, proj.ID)
	if err != nil || got == nil {
		t.Fatalf("project missing after member removal: %v", err)
	}
	if got.TeamLeaderID != nil {
		t.Fatalf("project must not stay led by a removed user, got %s", got.TeamLeaderID)
	}
}

func TestRemoveLastAdministratorInvalidState(t *testing.T) {
	e := newEnv(t)
	err := e.gw.RemoveMember(context.Background(), e.admin, e.orgID, e.admin.UserID)
	if !errors.Is(err, domerrors.ErrInvalidState) {
		t.Fatalf("removing the only administrator should be ErrInvalidState, got %v", err)
	}
}

func TestCreateProjectTeamLeaderSelfDefault(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	proj := e.createProject(t, "selfled")
	if proj.TeamLeaderID == nil || *proj.TeamLeaderID != e.leader.UserID {
		t.Fatalf("team leader should default to the creating TeamLeader, got %v", proj.TeamLeaderID)
	}
	m, err := e.store.Projects().GetMember(ctx, proj.ID, e.leader.UserID)
	if err != nil || m == nil {
		t.Fatalf("leader should be auto-added as project member: %v %v", m, err)
	}
	if m.RoleLabel != "team_leader" {
		t.Fatalf("leader membership label = %q", m.RoleLabel)
	}
}

func TestCreateProjectUnknownLeaderInvalidReference(t *testing.T) {
	e := newEnv(t)
	stranger := domain.NewUserID(uuid.New())
	_, err := e.gw.CreateProject(context.Background(), e.admin, CreateProjectInput{
		Name:         "ghost",
		TeamLeaderID: &stranger,
	})
	if !errors.Is(err, domerrors.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestCreateProjectMemberDenied(t *testing.T) {
	e := newEnv(t)
	_, err := e.gw.CreateProject(context.Background(), e.member, CreateProjectInput{Name: "nope"})
	de, ok := domerrors.AsDenied(err)
	if !ok || de.Reason != domerrors.InsufficientRole {
		t.Fatalf("member project creation should be denied insufficient_role, got %v", err)
	}
	projects, _ := e.store.Projects().ListByOrganization(context.Background(), e.orgID)
	if len(projects) != 0 {
		t.Fatalf("denied creation must leave no project behind, found %d", len(projects))
	}
}

func TestUpdateProjectNewLeaderGetsMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "handover")

	// Promote the member to TeamLeader so they can hold the project.
	if err := e.gw.ChangeMemberRole(ctx, e.admin, e.orgID, e.member.UserID, domain.RoleTeamLeader); err != nil {
		t.Fatal(err)
	}
	newLeader := e.member.UserID
	updated, err := e.gw.UpdateProject(ctx, e.admin, proj.ID, UpdateProjectInput{TeamLeaderID: &newLeader})
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if updated.TeamLeaderID == nil || *updated.TeamLeaderID != newLeader {
		t.Fatalf("leader not updated: %v", updated.TeamLeaderID)
	}
	m, err := e.store.Projects().GetMember(ctx, proj.ID, newLeader)
	if err != nil || m == nil {
		t.Fatalf("new leader should gain project membership: %v %v", m, err)
	}
}

func TestRemoveProjectMemberLeaderGuard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "guarded")

	err := e.gw.RemoveProjectMember(ctx, e.admin, proj.ID, e.leader.UserID)
	if !errors.Is(err, domerrors.ErrInvalidState) {
		t.Fatalf("removing the current leader should be ErrInvalidState, got %v", err)
	}

	// Clearing the leader first makes the removal legal.
	if _, err := e.gw.UpdateProject(ctx, e.admin, proj.ID, UpdateProjectInput{ClearTeamLeader: true}); err != nil {
		t.Fatal(err)
	}
	if err := e.gw.RemoveProjectMember(ctx, e.admin, proj.ID, e.leader.UserID); err != nil {
		t.Fatalf("removal after clearing leader: %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "doomed")
	task, err := e.gw.CreateTask(ctx, e.leader, CreateTaskInput{ProjectID: proj.ID, Title: "t"})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.gw.DeleteProject(ctx, e.admin, proj.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if p, _ := e.store.Projects().GetByID(ctx, proj.ID); p != nil {
		t.Fatal("project should be gone")
	}
	if got, _ := e.store.Tasks().GetByID(ctx, task.ID); got != nil {
		t.Fatal("tasks should cascade with the project")
	}
}

func TestDashboardReflectsCommittedFacts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "dash")
	due := time.Now().Add(24 * time.Hour)
	if _, err := e.gw.CreateTask(ctx, e.leader, CreateTaskInput{ProjectID: proj.ID, Title: "due soon", DueDate: &due}); err != nil {
		t.Fatal(err)
	}

	agg, err := e.maintainer.AggregateFor(ctx, e.orgID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.TaskTotal != 1 || agg.TaskToDo != 1 {
		t.Fatalf("task counts = %+v", agg)
	}
	if agg.ProjectTotal != 1 || agg.ProjectActive != 1 {
		t.Fatalf("project counts = %+v", agg)
	}
	if len(agg.Upcoming) != 1 || agg.Upcoming[0].Title != "due soon" {
		t.Fatalf("upcoming = %+v", agg.Upcoming)
	}
}
