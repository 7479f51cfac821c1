package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// TaskStore is the task view of the Store.
type TaskStore struct{ *Store }

func (s *TaskStore) Create(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[t.ProjectID] == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if s.tasks[t.ID] != nil {
		return fmt.Errorf("task exists: %w", domerrors.ErrConflict)
	}
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tasks[id]
	if t == nil {
		return nil, nil
	}
	return cloneTask(t), nil
}

func (s *TaskStore) Update(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[t.ID] == nil {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id domain.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks[id] == nil {
		return fmt.Errorf("task: %w", domerrors.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) ListByProject(ctx context.Context, projectID domain.ProjectID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TaskStore) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		p := s.projects[t.ProjectID]
		if p != nil && p.OrganizationID == orgID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TaskStore) ListAssigned(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		p := s.projects[t.ProjectID]
		if p == nil || p.OrganizationID != orgID {
			continue
		}
		if t.AssignedTo(userID) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TaskStore) CountByStatus(ctx context.Context, projectID domain.ProjectID) (ports.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c ports.StatusCounts
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		switch t.Status {
		case domain.TaskToDo:
			c.ToDo++
		case domain.TaskInProgress:
			c.InProgress++
		case domain.TaskDone:
			c.Done++
		}
	}
	return c, nil
}

var (
	_ ports.OrganizationRepository = (*Store)(nil)
	_ ports.MembershipRepository   = (*Store)(nil)
	_ ports.ProjectRepository      = (*ProjectStore)(nil)
	_ ports.TaskRepository         = (*TaskStore)(nil)
)
