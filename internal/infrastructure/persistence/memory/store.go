// Package memory is an in-memory implementation of the persistence ports,
// suitable for tests and single-instance runs without a database. Multi
// instance deployments use the postgres implementation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
	domerrors "github.com/yedlingit/TeamFlow-sub001/internal/domain/errors"
)

// Store holds all relations behind one RWMutex. Writes are applied under the
// write lock, so a reader never observes a partially applied mutation.
type Store struct {
	mu sync.RWMutex

	orgs       map[domain.OrganizationID]*domain.Organization
	orgByCode  map[string]domain.OrganizationID
	members    map[domain.OrganizationID]map[domain.UserID]*domain.Membership
	orgOfUser  map[domain.UserID]domain.OrganizationID
	projects   map[domain.ProjectID]*domain.Project
	projMember map[domain.ProjectID]map[domain.UserID]*domain.ProjectMembership
	tasks      map[domain.TaskID]*domain.Task
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		orgs:       make(map[domain.OrganizationID]*domain.Organization),
		orgByCode:  make(map[string]domain.OrganizationID),
		members:    make(map[domain.OrganizationID]map[domain.UserID]*domain.Membership),
		orgOfUser:  make(map[domain.UserID]domain.OrganizationID),
		projects:   make(map[domain.ProjectID]*domain.Project),
		projMember: make(map[domain.ProjectID]map[domain.UserID]*domain.ProjectMembership),
		tasks:      make(map[domain.TaskID]*domain.Task),
	}
}

// --- organizations ---

func (s *Store) Create(ctx context.Context, org *domain.Organization, founder *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.orgByCode[org.InviteCode]; taken {
		return fmt.Errorf("invite code already issued: %w", domerrors.ErrConflict)
	}
	if _, affiliated := s.orgOfUser[founder.UserID]; affiliated {
		return fmt.Errorf("founder already a member: %w", domerrors.ErrConflict)
	}
	s.orgs[org.ID] = cloneOrg(org)
	s.orgByCode[org.InviteCode] = org.ID
	s.members[org.ID] = map[domain.UserID]*domain.Membership{founder.UserID: cloneMembership(founder)}
	s.orgOfUser[founder.UserID] = org.ID
	return nil
}

func (s *Store) GetByID(ctx context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org := s.orgs[id]
	if org == nil {
		return nil, nil
	}
	return cloneOrg(org), nil
}

func (s *Store) GetByInviteCode(ctx context.Context, code string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.orgByCode[code]
	if !ok {
		return nil, nil
	}
	return cloneOrg(s.orgs[id]), nil
}

func (s *Store) UpdateName(ctx context.Context, id domain.OrganizationID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org := s.orgs[id]
	if org == nil {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	org.Name = name
	return nil
}

func (s *Store) UpdateInviteCode(ctx context.Context, id domain.OrganizationID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org := s.orgs[id]
	if org == nil {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	if holder, taken := s.orgByCode[code]; taken && holder != id {
		return fmt.Errorf("invite code already issued: %w", domerrors.ErrConflict)
	}
	delete(s.orgByCode, org.InviteCode)
	org.InviteCode = code
	s.orgByCode[code] = id
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.OrganizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org := s.orgs[id]
	if org == nil {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	delete(s.orgByCode, org.InviteCode)
	for uid := range s.members[id] {
		delete(s.orgOfUser, uid)
	}
	delete(s.members, id)
	for pid, p := range s.projects {
		if p.OrganizationID == id {
			s.deleteProjectLocked(pid)
		}
	}
	delete(s.orgs, id)
	return nil
}

// --- organization memberships ---

func (s *Store) Add(ctx context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, affiliated := s.orgOfUser[m.UserID]; affiliated {
		return fmt.Errorf("membership exists: %w", domerrors.ErrConflict)
	}
	if s.orgs[m.OrganizationID] == nil {
		return fmt.Errorf("organization: %w", domerrors.ErrNotFound)
	}
	if s.members[m.OrganizationID] == nil {
		s.members[m.OrganizationID] = make(map[domain.UserID]*domain.Membership)
	}
	s.members[m.OrganizationID][m.UserID] = cloneMembership(m)
	s.orgOfUser[m.UserID] = m.OrganizationID
	return nil
}

func (s *Store) Get(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) (*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.members[orgID][userID]
	if m == nil {
		return nil, nil
	}
	return cloneMembership(m), nil
}

func (s *Store) GetByUser(ctx context.Context, userID domain.UserID) (*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orgID, ok := s.orgOfUser[userID]
	if !ok {
		return nil, nil
	}
	return cloneMembership(s.members[orgID][userID]), nil
}

func (s *Store) UpdateRole(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.members[orgID][userID]
	if m == nil {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	m.Role = role
	return nil
}

func (s *Store) Remove(ctx context.Context, orgID domain.OrganizationID, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[orgID][userID] == nil {
		return fmt.Errorf("membership: %w", domerrors.ErrNotFound)
	}
	delete(s.members[orgID], userID)
	delete(s.orgOfUser, userID)
	for pid, p := range s.projects {
		if p.OrganizationID != orgID {
			continue
		}
		if p.TeamLeaderID != nil && *p.TeamLeaderID == userID {
			p.TeamLeaderID = nil
		}
		delete(s.projMember[pid], userID)
		s.unassignFromProjectTasksLocked(pid, userID)
	}
	return nil
}

func (s *Store) ListByOrganization(ctx context.Context, orgID domain.OrganizationID) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Membership, 0, len(s.members[orgID]))
	for _, m := range s.members[orgID] {
		out = append(out, cloneMembership(m))
	}
	return out, nil
}

func cloneOrg(o *domain.Organization) *domain.Organization {
	c := *o
	return &c
}

func cloneMembership(m *domain.Membership) *domain.Membership {
	c := *m
	return &c
}

func cloneProject(p *domain.Project) *domain.Project {
	c := *p
	if p.TeamLeaderID != nil {
		lid := *p.TeamLeaderID
		c.TeamLeaderID = &lid
	}
	if p.DueDate != nil {
		d := *p.DueDate
		c.DueDate = &d
	}
	return &c
}

func cloneProjectMembership(m *domain.ProjectMembership) *domain.ProjectMembership {
	c := *m
	return &c
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.Assignees = append([]domain.UserID(nil), t.Assignees...)
	return &c
}
