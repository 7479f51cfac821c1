package domain

import "time"

// DashboardAggregate is the per-organization derived summary. It is entirely
// recomputable from project, task and membership facts and is never
// independently mutated.
type DashboardAggregate struct {
	OrganizationID OrganizationID

	TaskTotal      int
	TaskToDo       int
	TaskInProgress int
	TaskDone       int

	ProjectTotal    int
	ProjectActive   int
	ProjectInactive int

	Upcoming       []UpcomingTask
	ActiveProjects []ProjectSummary

	ComputedAt time.Time
}

// UpcomingTask is a dashboard entry for a not-done task with a due date,
// ordered nearest-first.
type UpcomingTask struct {
	TaskID    TaskID
	ProjectID ProjectID
	Title     string
	Status    TaskStatus
	Priority  TaskPriority
	DueDate   time.Time
}

// ProjectSummary is a dashboard entry for an active project.
type ProjectSummary struct {
	ProjectID   ProjectID
	Name        string
	Progress    int
	TaskCount   int
	MemberCount int
}
