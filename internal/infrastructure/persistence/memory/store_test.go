package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

func seed(t *testing.T, s *Store, code string) (domain.OrganizationID, domain.UserID) {
	t.Helper()
	now := time.Now()
	orgID := domain.NewOrganizationID(uuid.New())
	founderID := domain.NewUserID(uuid.New())
	err := s.Create(context.Background(),
		&domain.Organization{ID: orgID, Name: "org", InviteCode: code, CreatedAt: now},
		&domain.Membership{OrganizationID: orgID, UserID: founderID, Role: domain.RoleAdministrator, CreatedAt: now})
	if err != nil {
		t.Fatal(err)
	}
	return orgID, founderID
}

func TestCreateRejectsDuplicateInviteCode(t *testing.T) {
	s := NewStore()
	seed(t, s, "SAMECODE22")
	now := time.Now()
	err := s.Create(context.Background(),
		&domain.Organization{ID: domain.NewOrganizationID(uuid.New()), Name: "other", InviteCode: "SAMECODE22", CreatedAt: now},
		&domain.Membership{OrganizationID: domain.NewOrganizationID(uuid.New()), UserID: domain.NewUserID(uuid.New()), Role: domain.RoleAdministrator, CreatedAt: now})
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAddEnforcesSingleOrganizationPerUser(t *testing.T) {
	s := NewStore()
	orgA, _ := seed(t, s, "ORGACODE22")
	orgB, _ := seed(t, s, "ORGBCODE22")
	userID := domain.NewUserID(uuid.New())
	now := time.Now()

	if err := s.Add(context.Background(), &domain.Membership{OrganizationID: orgA, UserID: userID, Role: domain.RoleMember, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	err := s.Add(context.Background(), &domain.Membership{OrganizationID: orgB, UserID: userID, Role: domain.RoleMember, CreatedAt: now})
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateInviteCodeCollisionAndSelf(t *testing.T) {
	s := NewStore()
	orgA, _ := seed(t, s, "FIRSTCODE2")
	seed(t, s, "TAKENCODE2")
	ctx := context.Background()

	err := s.UpdateInviteCode(ctx, orgA, "TAKENCODE2")
	if !errors.Is(err, domerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for another org's code, got %v", err)
	}
	// Re-writing an organization's own code is not a collision.
	if err := s.UpdateInviteCode(ctx, orgA, "FIRSTCODE2"); err != nil {
		t.Fatalf("self update: %v", err)
	}
	if err := s.UpdateInviteCode(ctx, orgA, "FRESHCODE2"); err != nil {
		t.Fatalf("fresh update: %v", err)
	}
	if org, _ := s.GetByInviteCode(ctx, "FIRSTCODE2"); org != nil {
		t.Fatal("replaced code should no longer resolve")
	}
}

func TestRemoveCascadesProjectFacts(t *testing.T) {
	s := NewStore()
	orgID, _ := seed(t, s, "CASCADE222")
	ctx := context.Background()
	now := time.Now()
	userID := domain.NewUserID(uuid.New())
	if err := s.Add(ctx, &domain.Membership{OrganizationID: orgID, UserID: userID, Role: domain.RoleMember, CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	projID := domain.NewProjectID(uuid.New())
	projects := s.Projects()
	if err := projects.Create(ctx, &domain.Project{ID: projID, OrganizationID: orgID, Name: "p", TeamLeaderID: &userID, Status: domain.ProjectActive, CreatedAt: now, UpdatedAt: now}, nil); err != nil {
		t.Fatal(err)
	}
	if err := projects.AddMember(ctx, &domain.ProjectMembership{ProjectID: projID, UserID: userID, JoinedAt: now}); err != nil {
		t.Fatal(err)
	}
	taskID := domain.NewTaskID(uuid.New())
	if err := s.Tasks().Create(ctx, &domain.Task{ID: taskID, ProjectID: projID, Title: "t", Assignees: []domain.UserID{userID}, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(ctx, orgID, userID); err != nil {
		t.Fatal(err)
	}
	if m, _ := projects.GetMember(ctx, projID, userID); m != nil {
		t.Fatal("project membership should cascade")
	}
	task, _ := s.Tasks().GetByID(ctx, taskID)
	if len(task.Assignees) != 0 {
		t.Fatalf("assignments should cascade, got %v", task.Assignees)
	}
	proj, _ := projects.GetByID(ctx, projID)
	if proj.TeamLeaderID != nil {
		t.Fatalf("team lead assignment should be cleared, still %s", proj.TeamLeaderID)
	}
	if m, _ := s.GetByUser(ctx, userID); m != nil {
		t.Fatal("org membership should be gone")
	}
}

func TestDeleteOrganizationCascadesEverything(t *testing.T) {
	s := NewStore()
	orgID, founderID := seed(t, s, "NUKEME2222")
	ctx := context.Background()
	now := time.Now()

	projID := domain.NewProjectID(uuid.New())
	if err := s.Projects().Create(ctx, &domain.Project{ID: projID, OrganizationID: orgID, Name: "p", Status: domain.ProjectActive, CreatedAt: now, UpdatedAt: now}, nil); err != nil {
		t.Fatal(err)
	}
	taskID := domain.NewTaskID(uuid.New())
	if err := s.Tasks().Create(ctx, &domain.Task{ID: taskID, ProjectID: projID, Title: "t", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, orgID); err != nil {
		t.Fatal(err)
	}
	if org, _ := s.GetByID(ctx, orgID); org != nil {
		t.Fatal("organization should be gone")
	}
	if m, _ := s.GetByUser(ctx, founderID); m != nil {
		t.Fatal("founder should be unaffiliated after deletion")
	}
	if p, _ := s.Projects().GetByID(ctx, projID); p != nil {
		t.Fatal("projects should cascade")
	}
	if task, _ := s.Tasks().GetByID(ctx, taskID); task != nil {
		t.Fatal("tasks should cascade")
	}
}

func TestUpdatePreservesDerivedFields(t *testing.T) {
	s := NewStore()
	orgID, _ := seed(t, s, "DERIVED222")
	ctx := context.Background()
	now := time.Now()

	projID := domain.NewProjectID(uuid.New())
	projects := s.Projects()
	if err := projects.Create(ctx, &domain.Project{ID: projID, OrganizationID: orgID, Name: "p", Status: domain.ProjectActive, CreatedAt: now, UpdatedAt: now}, nil); err != nil {
		t.Fatal(err)
	}
	later := now.Add(time.Hour)
	if err := projects.SetDerived(ctx, projID, 75, later); err != nil {
		t.Fatal(err)
	}

	// A caller update carrying stale derived values must not clobber them.
	stale, _ := projects.GetByID(ctx, projID)
	stale.Name = "renamed"
	stale.Progress = 0
	stale.UpdatedAt = now
	if err := projects.Update(ctx, stale, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := projects.GetByID(ctx, projID)
	if got.Name != "renamed" {
		t.Fatalf("name = %q", got.Name)
	}
	if got.Progress != 75 || !got.UpdatedAt.Equal(later) {
		t.Fatalf("derived fields clobbered: progress=%d updatedAt=%v", got.Progress, got.UpdatedAt)
	}
}

func TestClonesIsolateCallers(t *testing.T) {
	s := NewStore()
	orgID, _ := seed(t, s, "ISOLATE222")
	ctx := context.Background()

	org, _ := s.GetByID(ctx, orgID)
	org.Name = "mutated by caller"
	again, _ := s.GetByID(ctx, orgID)
	if again.Name != "org" {
		t.Fatalf("store leaked internal state: %q", again.Name)
	}
}

func TestConcurrentRedeemStyleAdds(t *testing.T) {
	s := NewStore()
	orgID, _ := seed(t, s, "RACERACE22")
	ctx := context.Background()
	userID := domain.NewUserID(uuid.New())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Add(ctx, &domain.Membership{OrganizationID: orgID, UserID: userID, Role: domain.RoleMember, CreatedAt: time.Now()})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("exactly one concurrent add should win, got %d", wins)
	}
}
