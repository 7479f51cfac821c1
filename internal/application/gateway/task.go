package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/authz"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// Task mutations lock the parent project key: that serializes writers of the
// same task and of sibling tasks whose mutations feed the same derived
// project fields. Different organizations never contend.

// CreateTaskInput carries the caller-settable task fields.
type CreateTaskInput struct {
	ProjectID domain.ProjectID
	Title     string
	Status    domain.TaskStatus
	Priority  domain.TaskPriority
	DueDate   *time.Time
	Assignees []domain.UserID
}

// CreateTask creates a task in a project. Every assignee must already be a
// member of the project.
func (g *Gateway) CreateTask(ctx context.Context, p domain.Principal, in CreateTaskInput) (*domain.Task, error) {
	unlock := g.locks.lock("project:" + in.ProjectID.String())
	defer unlock()

	proj, err := g.projects.GetByID(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	now := g.now()
	task := &domain.Task{
		ID:        domain.NewTaskID(uuid.New()),
		ProjectID: in.ProjectID,
		Title:     in.Title,
		Status:    in.Status,
		Priority:  in.Priority,
		DueDate:   in.DueDate,
		CreatedAt: now,
		UpdatedAt: now,
		Assignees: in.Assignees,
	}
	if err := g.engine.Check(ctx, p, authz.ActionCreate, authz.TaskResource(proj, task)); err != nil {
		return nil, err
	}
	if err := g.requireProjectMembers(ctx, proj.ID, task.Assignees); err != nil {
		return nil, err
	}
	if err := g.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	g.emit(ctx, domain.EntityTask, task.ID.UUID, domain.ChangeCreate, proj.OrganizationID, proj.ID, now)
	return task, nil
}

// UpdateTaskInput applies only the non-nil fields. A Member may only set
// Status; any other field in the payload is rejected.
type UpdateTaskInput struct {
	Title        *string
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	Assignees    *[]domain.UserID
}

func (in UpdateTaskInput) statusOnly() bool {
	return in.Title == nil && in.Priority == nil && in.DueDate == nil &&
		!in.ClearDueDate && in.Assignees == nil
}

// UpdateTask mutates a task.
func (g *Gateway) UpdateTask(ctx context.Context, p domain.Principal, taskID domain.TaskID, in UpdateTaskInput) (*domain.Task, error) {
	probe, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	unlock := g.locks.lock("project:" + probe.ProjectID.String())
	defer unlock()

	// Reload under the lock; the probe read ran unserialized.
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
	if err := g.engine.Check(ctx, p, authz.ActionUpdate, authz.TaskResource(proj, task)); err != nil {
		return nil, err
	}
	if p.Role == domain.RoleMember && !in.statusOnly() {
		return nil, domerrors.Denied(domerrors.InsufficientRole)
	}
	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.ClearDueDate {
		task.DueDate = nil
	}
	if in.Assignees != nil {
		if err := g.requireProjectMembers(ctx, proj.ID, *in.Assignees); err != nil {
			return nil, err
		}
		task.Assignees = *in.Assignees
	}
	task.UpdatedAt = g.now()
	if err := g.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	g.emit(ctx, domain.EntityTask, task.ID.UUID, domain.ChangeUpdate, proj.OrganizationID, proj.ID, task.UpdatedAt)
	return task, nil
}

// DeleteTask removes a task.
func (g *Gateway) DeleteTask(ctx context.Context, p domain.Principal, taskID domain.TaskID) error {
	probe, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if probe == nil {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	unlock := g.locks.lock("project:" + probe.ProjectID.String())
	defer unlock()

	task, err := g.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	proj, err := g.projects.GetByID(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	if proj == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if err := g.engine.Check(ctx, p, authz.ActionDelete, authz.TaskResource(proj, task)); err != nil {
		return err
	}
	if err := g.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	g.emit(ctx, domain.EntityTask, taskID.UUID, domain.ChangeDelete, proj.OrganizationID, proj.ID, g.now())
	return nil
}

func (g *Gateway) requireProjectMembers(ctx context.Context, projectID domain.ProjectID, users []domain.UserID) error {
	for _, u := range users {
		m, err := g.projects.GetMember(ctx, projectID, u)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("assignee %s is not a member of the project: %w", u, domerrors.ErrInvalidReference)
		}
	}
	return nil
}
