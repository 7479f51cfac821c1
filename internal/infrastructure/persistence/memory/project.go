package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// Projects returns the store as a ports.ProjectRepository. The Store itself
// implements the organization and membership ports; project and task
// methods live on typed views so the method sets do not collide.
func (s *Store) Projects() *ProjectStore { return &ProjectStore{s} }

// Tasks returns the store as a ports.TaskRepository.
func (s *Store) Tasks() *TaskStore { return &TaskStore{s} }

// ProjectStore is the project/project-membership view of the Store.
type ProjectStore struct{ *Store }

func (s *ProjectStore) Create(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[p.ID] != nil {
		return fmt.Errorf("project exists: %w", domerrors.ErrConflict)
	}
	s.projects[p.ID] = cloneProject(p)
	s.projMember[p.ID] = make(map[domain.UserID]*domain.ProjectMembership)
	if leader != nil {
		s.projMember[p.ID][leader.UserID] = cloneProjectMembership(leader)
	}
	return nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id domain.ProjectID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.projects[id]
	if p == nil {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (s *ProjectStore) Update(ctx context.Context, p *domain.Project, leader *domain.ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.projects[p.ID]
	if stored == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	// Derived fields stay maintainer-owned; keep the stored values.
	progress, updatedAt := stored.Progress, stored.UpdatedAt
	c := cloneProject(p)
	c.Progress, c.UpdatedAt = progress, updatedAt
	s.projects[p.ID] = c
	if leader != nil {
		s.projMember[p.ID][leader.UserID] = cloneProjectMembership(leader)
	}
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, id domain.ProjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[id] == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	s.deleteProjectLocked(id)
	return nil
}

func (s *ProjectStore) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Project
	for _, p := range s.projects {
		if p.OrganizationID == orgID {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ProjectStore) ListForUser(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Project
	for pid, p := range s.projects {
		if p.OrganizationID != orgID {
			continue
		}
		if s.projMember[pid][userID] != nil {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ProjectStore) SetDerived(ctx context.Context, id domain.ProjectID, progress int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projects[id]
	if p == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	p.Progress = progress
	p.UpdatedAt = updatedAt
	return nil
}

func (s *ProjectStore) AddMember(ctx context.Context, m *domain.ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projects[m.ProjectID] == nil {
		return fmt.Errorf("project: %w", domerrors.ErrNotFound)
	}
	if s.projMember[m.ProjectID][m.UserID] != nil {
		return fmt.Errorf("project membership exists: %w", domerrors.ErrConflict)
	}
	s.projMember[m.ProjectID][m.UserID] = cloneProjectMembership(m)
	return nil
}

func (s *ProjectStore) RemoveMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projMember[projectID][userID] == nil {
		return fmt.Errorf("project membership: %w", domerrors.ErrNotFound)
	}
	delete(s.projMember[projectID], userID)
	s.unassignFromProjectTasksLocked(projectID, userID)
	return nil
}

func (s *ProjectStore) GetMember(ctx context.Context, projectID domain.ProjectID, userID domain.UserID) (*domain.ProjectMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.projMember[projectID][userID]
	if m == nil {
		return nil, nil
	}
	return cloneProjectMembership(m), nil
}

func (s *ProjectStore) ListMembers(ctx context.Context, projectID domain.ProjectID) ([]*domain.ProjectMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ProjectMembership, 0, len(s.projMember[projectID]))
	for _, m := range s.projMember[projectID] {
		out = append(out, cloneProjectMembership(m))
	}
	return out, nil
}

func (s *ProjectStore) CountMembers(ctx context.Context, projectID domain.ProjectID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projMember[projectID]), nil
}

// deleteProjectLocked cascades tasks and memberships. Caller holds the lock.
func (s *Store) deleteProjectLocked(id domain.ProjectID) {
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	delete(s.projMember, id)
	delete(s.projects, id)
}

// unassignFromProjectTasksLocked drops the user from assignee sets of the
// project's tasks. Caller holds the lock.
func (s *Store) unassignFromProjectTasksLocked(projectID domain.ProjectID, userID domain.UserID) {
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		kept := t.Assignees[:0]
		for _, a := range t.Assignees {
			if a != userID {
				kept = append(kept, a)
			}
		}
		t.Assignees = kept
	}
}
