// Package derived keeps project progress, last-activity timestamps and the
// per-organization dashboard aggregate consistent with the committed facts.
// Nothing here is a source of truth: every value is recomputable from the
// membership store.
package derived

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/yedlingit/TeamFlow-sub001/internal/application/ports"
	"github.com/yedlingit/TeamFlow-sub001/internal/domain"
)

const (
	defaultUpcomingLimit = 5
	defaultActiveLimit   = 5
)

// Maintainer reacts to committed mutation events and recomputes exactly the
// aggregates whose inputs the event could have changed. OnMutation is
// idempotent and tolerates duplicate or reordered delivery.
type Maintainer struct {
	projects ports.ProjectRepository
	tasks    ports.TaskRepository
	members  ports.MembershipRepository

	upcomingLimit int
	activeLimit   int
	now           func() time.Time

	mu    sync.RWMutex
	cache map[domain.OrganizationID]*domain.DashboardAggregate
	gen   map[domain.OrganizationID]uint64
}

// NewMaintainer builds a maintainer with default dashboard list bounds.
func NewMaintainer(projects ports.ProjectRepository, tasks ports.TaskRepository, members ports.MembershipRepository) *Maintainer {
	return &Maintainer{
		projects:      projects,
		tasks:         tasks,
		members:       members,
		upcomingLimit: defaultUpcomingLimit,
		activeLimit:   defaultActiveLimit,
		now:           time.Now,
		cache:         make(map[domain.OrganizationID]*domain.DashboardAggregate),
		gen:           make(map[domain.OrganizationID]uint64),
	}
}

// OnMutation recomputes derived state affected by the event. Task events
// recompute their project's progress and last-activity timestamp; every
// event invalidates the owning organization's cached dashboard aggregate.
func (m *Maintainer) OnMutation(ctx context.Context, ev domain.MutationEvent) error {
	if ev.EntityKind == domain.EntityTask && !ev.ProjectID.IsZero() {
		if err := m.recomputeProject(ctx, ev.ProjectID, ev.OccurredAt); err != nil {
			return err
		}
	}
	m.invalidate(ev.OrganizationID)
	return nil
}

// recomputeProject writes progress = round(100 * done / total), 0 when the
// project has no tasks, and advances UpdatedAt to the event timestamp if it
// is newer. A late-arriving event for an older mutation never moves
// UpdatedAt backward.
func (m *Maintainer) recomputeProject(ctx context.Context, projectID domain.ProjectID, occurredAt time.Time) error {
	p, err := m.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if p == nil {
		// Event outlived its project; nothing left to reconcile.
		return nil
	}
	counts, err := m.tasks.CountByStatus(ctx, projectID)
	if err != nil {
		return err
	}
	progress := 0
	if total := counts.Total(); total > 0 {
		progress = int(math.Round(100 * float64(counts.Done) / float64(total)))
	}
	updatedAt := p.UpdatedAt
	if occurredAt.After(updatedAt) {
		updatedAt = occurredAt
	}
	return m.projects.SetDerived(ctx, projectID, progress, updatedAt)
}

func (m *Maintainer) invalidate(orgID domain.OrganizationID) {
	m.mu.Lock()
	delete(m.cache, orgID)
	m.gen[orgID]++
	m.mu.Unlock()
}

// AggregateFor returns the organization's dashboard aggregate, recomputing
// from current facts when no fresh cache exists. A read never returns an
// aggregate older than the last mutation the maintainer was notified of.
func (m *Maintainer) AggregateFor(ctx context.Context, orgID domain.OrganizationID) (*domain.DashboardAggregate, error) {
	m.mu.RLock()
	cached := m.cache[orgID]
	gen := m.gen[orgID]
	m.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	agg, err := m.compute(ctx, orgID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	// A mutation invalidated the organization while this compute ran; the
	// aggregate may predate it and must not be pinned in the cache.
	if m.gen[orgID] == gen {
		m.cache[orgID] = agg
	}
	m.mu.Unlock()
	return agg, nil
}

func (m *Maintainer) compute(ctx context.Context, orgID domain.OrganizationID) (*domain.DashboardAggregate, error) {
	projects, err := m.projects.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	tasks, err := m.tasks.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	agg := &domain.DashboardAggregate{
		OrganizationID: orgID,
		ComputedAt:     m.now(),
	}

	taskCountByProject := make(map[domain.ProjectID]int)
	for _, t := range tasks {
		agg.TaskTotal++
		switch t.Status {
		case domain.TaskToDo:
			agg.TaskToDo++
		case domain.TaskInProgress:
			agg.TaskInProgress++
		case domain.TaskDone:
			agg.TaskDone++
		}
		taskCountByProject[t.ProjectID]++
		if t.DueDate != nil && t.Status != domain.TaskDone {
			agg.Upcoming = append(agg.Upcoming, domain.UpcomingTask{
				TaskID:    t.ID,
				ProjectID: t.ProjectID,
				Title:     t.Title,
				Status:    t.Status,
				Priority:  t.Priority,
				DueDate:   *t.DueDate,
			})
		}
	}
	sort.Slice(agg.Upcoming, func(i, j int) bool {
		return agg.Upcoming[i].DueDate.Before(agg.Upcoming[j].DueDate)
	})
	if len(agg.Upcoming) > m.upcomingLimit {
		agg.Upcoming = agg.Upcoming[:m.upcomingLimit]
	}

	var active []*domain.Project
	for _, p := range projects {
		agg.ProjectTotal++
		switch p.Status {
		case domain.ProjectActive:
			agg.ProjectActive++
			active = append(active, p)
		case domain.ProjectInactive:
			agg.ProjectInactive++
		}
	}
	// Most recently active projects first.
	sort.Slice(active, func(i, j int) bool {
		return active[i].UpdatedAt.After(active[j].UpdatedAt)
	})
	if len(active) > m.activeLimit {
		active = active[:m.activeLimit]
	}
	for _, p := range active {
		memberCount, err := m.projects.CountMembers(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		agg.ActiveProjects = append(agg.ActiveProjects, domain.ProjectSummary{
			ProjectID:   p.ID,
			Name:        p.Name,
			Progress:    p.Progress,
			TaskCount:   taskCountByProject[p.ID],
			MemberCount: memberCount,
		})
	}
	return agg, nil
}
