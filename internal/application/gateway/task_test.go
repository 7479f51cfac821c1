package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

func (e *env) createTask(t *testing.T, projectID domain.ProjectID, title string, assignees ...domain.UserID) *domain.Task {
	t.Helper()
	task, err := e.gw.CreateTask(context.Background(), e.leader, CreateTaskInput{
		ProjectID: projectID,
		Title:     title,
		Assignees: assignees,
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

func (e *env) projectProgress(t *testing.T, projectID domain.ProjectID) int {
	t.Helper()
	p, err := e.store.Projects().GetByID(context.Background(), projectID)
	if err != nil || p == nil {
		t.Fatalf("load project: %v %v", p, err)
	}
	return p.Progress
}

func TestProgressTracksDoneRatio(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "progress")

	first := e.createTask(t, proj.ID, "one")
	second := e.createTask(t, proj.ID, "two")
	if got := e.projectProgress(t, proj.ID); got != 0 {
		t.Fatalf("progress with no done tasks = %d, want 0", got)
	}

	done := domain.TaskDone
	if _, err := e.gw.UpdateTask(ctx, e.leader, first.ID, UpdateTaskInput{Status: &done}); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if got := e.projectProgress(t, proj.ID); got != 50 {
		t.Fatalf("progress with 1/2 done = %d, want 50", got)
	}

	if _, err := e.gw.UpdateTask(ctx, e.leader, second.ID, UpdateTaskInput{Status: &done}); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if got := e.projectProgress(t, proj.ID); got != 100 {
		t.Fatalf("progress with 2/2 done = %d, want 100", got)
	}

	// Deleting a done task shrinks the denominator and the numerator.
	if err := e.gw.DeleteTask(ctx, e.leader, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := e.projectProgress(t, proj.ID); got != 100 {
		t.Fatalf("progress with 1/1 done = %d, want 100", got)
	}
}

func TestProgressRoundsHalfUp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "rounding")

	tasks := make([]*domain.Task, 3)
	for i, title := range []string{"a", "b", "c"} {
		tasks[i] = e.createTask(t, proj.ID, title)
	}
	done := domain.TaskDone
	if _, err := e.gw.UpdateTask(ctx, e.leader, tasks[0].ID, UpdateTaskInput{Status: &done}); err != nil {
		t.Fatal(err)
	}
	// 1/3 done: round(33.33) = 33.
	if got := e.projectProgress(t, proj.ID); got != 33 {
		t.Fatalf("progress 1/3 = %d, want 33", got)
	}
	if _, err := e.gw.UpdateTask(ctx, e.leader, tasks[1].ID, UpdateTaskInput{Status: &done}); err != nil {
		t.Fatal(err)
	}
	// 2/3 done: round(66.67) = 67.
	if got := e.projectProgress(t, proj.ID); got != 67 {
		t.Fatalf("progress 2/3 = %d, want 67", got)
	}
}

func TestUpdatedAtAdvancesWithTaskMutations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "activity")
	before, _ := e.store.Projects().GetByID(ctx, proj.ID)

	task := e.createTask(t, proj.ID, "tick")
	after, _ := e.store.Projects().GetByID(ctx, proj.ID)
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Fatal("UpdatedAt must never move backward")
	}

	status := domain.TaskInProgress
	if _, err := e.gw.UpdateTask(ctx, e.leader, task.ID, UpdateTaskInput{Status: &status}); err != nil {
		t.Fatal(err)
	}
	final, _ := e.store.Projects().GetByID(ctx, proj.ID)
	if final.UpdatedAt.Before(after.UpdatedAt) {
		t.Fatal("UpdatedAt must be monotonic across mutations")
	}
}

func TestMemberStatusOnlyUpdate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "statusonly")
	if err := e.gw.AddProjectMember(ctx, e.leader, proj.ID, e.member.UserID, ""); err != nil {
		t.Fatal(err)
	}
	task := e.createTask(t, proj.ID, "assigned", e.member.UserID)

	status := domain.TaskInProgress
	updated, err := e.gw.UpdateTask(ctx, e.member, task.ID, UpdateTaskInput{Status: &status})
	if err != nil {
		t.Fatalf("member status update on own task: %v", err)
	}
	if updated.Status != domain.TaskInProgress {
		t.Fatalf("status = %v", updated.Status)
	}

	// Any field beyond status in the payload is rejected wholesale.
	title := "renamed"
	_, err = e.gw.UpdateTask(ctx, e.member, task.ID, UpdateTaskInput{Status: &status, Title: &title})
	de, ok := domerrors.AsDenied(err)
	if !ok || de.Reason != domerrors.InsufficientRole {
		t.Fatalf("member non-status update should be denied insufficient_role, got %v", err)
	}
	got, _ := e.store.Tasks().GetByID(ctx, task.ID)
	if got.Title != "assigned" {
		t.Fatalf("denied update must leave the task untouched, title = %q", got.Title)
	}
}

func TestMemberCannotTouchUnassignedTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "offlimits")
	if err := e.gw.AddProjectMember(ctx, e.leader, proj.ID, e.member.UserID, ""); err != nil {
		t.Fatal(err)
	}
	task := e.createTask(t, proj.ID, "not yours")

	status := domain.TaskDone
	_, err := e.gw.UpdateTask(ctx, e.member, task.ID, UpdateTaskInput{Status: &status})
	de, ok := domerrors.AsDenied(err)
	if !ok || de.Reason != domerrors.NotAssigned {
		t.Fatalf("expected not_assigned denial, got %v", err)
	}

	err = e.gw.DeleteTask(ctx, e.member, task.ID)
	if de, ok := domerrors.AsDenied(err); !ok || de.Reason != domerrors.NotAssigned {
		t.Fatalf("expected not_assigned denial on delete, got %v", err)
	}
	if got, _ := e.store.Tasks().GetByID(ctx, task.ID); got == nil {
		t.Fatal("denied delete must leave the task in place")
	}
	if got := e.projectProgress(t, proj.ID); got != 0 {
		t.Fatalf("denied mutations must not disturb derived state, progress = %d", got)
	}
}

func TestCreateTaskAssigneeMustBeProjectMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	proj := e.createProject(t, "strict")

	// Organization member, but not a project member.
	_, err := e.gw.CreateTask(ctx, e.leader, CreateTaskInput{
		ProjectID: proj.ID,
		Title:     "bad assignee",
		Assignees: []domain.UserID{e.member.UserID},
	})
	if !errors.Is(err, domerrors.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	tasks, _ := e.store.Tasks().ListByProject(ctx, proj.ID)
	if len(tasks) != 0 {
		t.Fatalf("failed creation must write nothing, found %d tasks", len(tasks))
	}
}

func TestUpdateTaskUnknownID(t *testing.T) {
	e := newEnv(t)
	status := domain.TaskDone
	_, err := e.gw.UpdateTask(context.Background(), e.leader, domain.NewTaskID(uuid.New()), UpdateTaskInput{Status: &status})
	if !errors.Is(err, domerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemberListsOnlyAssignedProjects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	visible := e.createProject(t, "visible")
	e.createProject(t, "hidden")
	if err := e.gw.AddProjectMember(ctx, e.leader, visible.ID, e.member.UserID, ""); err != nil {
		t.Fatal(err)
	}

	got, err := e.gw.ListProjects(ctx, e.member)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != visible.ID {
		t.Fatalf("member should see exactly the assigned project, got %d", len(got))
	}

	all, err := e.gw.ListProjects(ctx, e.leader)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("leader should see every project, got %d", len(all))
	}
}
