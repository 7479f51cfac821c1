package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskID is a value object for task identity.
type TaskID struct{ uuid.UUID }

// NewTaskID creates a new TaskID from uuid.
func NewTaskID(id uuid.UUID) TaskID { return TaskID{UUID: id} }

// String returns the canonical string form.
func (t TaskID) String() string { return t.UUID.String() }

// IsZero reports whether the ID is unset.
func (t TaskID) IsZero() bool { return t.UUID == uuid.UUID{} }

// TaskStatus is the closed, ordered task status set used for reporting.
type TaskStatus int

const (
	TaskToDo TaskStatus = iota
	TaskInProgress
	TaskDone
)

// String returns the canonical status name.
func (s TaskStatus) String() string {
	switch s {
	case TaskInProgress:
		return "in_progress"
	case TaskDone:
		return "done"
	default:
		return "todo"
	}
}

// ParseTaskStatus maps a boundary status name to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch s {
	case "todo":
		return TaskToDo, true
	case "in_progress":
		return TaskInProgress, true
	case "done":
		return TaskDone, true
	}
	return TaskToDo, false
}

// TaskPriority is ordered: Low < Medium < High < Urgent.
type TaskPriority int

const (
	PriorityLow TaskPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String returns the canonical priority name.
func (p TaskPriority) String() string {
	switch p {
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "low"
	}
}

// ParseTaskPriority maps a boundary priority name to a TaskPriority.
func ParseTaskPriority(s string) (TaskPriority, bool) {
	switch s {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	case "urgent":
		return PriorityUrgent, true
	}
	return PriorityLow, false
}

// Task belongs to exactly one project. Every assignee must already hold a
// ProjectMembership of the task's project.
type Task struct {
	ID        TaskID
	ProjectID ProjectID
	Title     string
	Status    TaskStatus
	Priority  TaskPriority
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Assignees []UserID
}

// AssignedTo reports whether the task is assigned to the given user.
func (t *Task) AssignedTo(userID UserID) bool {
	for _, a := range t.Assignees {
		if a == userID {
			return true
		}
	}
	return false
}
