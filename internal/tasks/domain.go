package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates the canonical task lifecycle stages.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusApproved   Status = "approved"
)

// ApprovalStatus tracks the approval decision on a completed task.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// WorkflowSteps is the linear task workflow. The approved step is reachable
// only through the approval action, never by a direct status transition.
var WorkflowSteps = [4]Status{StatusPending, StatusInProgress, StatusCompleted, StatusApproved}

// Task represents a unit of work.
type Task struct {
	ID             uuid.UUID
	Title          string
	Description    string
	Status         Status
	ApprovalStatus ApprovalStatus
	Priority       int
	DueDate        *time.Time
	CreatorID      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Assignment links a task to the user responsible for it.
type Assignment struct {
	TaskID     uuid.UUID
	UserID     int64
	AssignedBy int64
	AssignedAt time.Time
}

// TaskWithAssignment couples a task with its assignment row, nil when the
// task is unassigned. Listings load both in one query.
type TaskWithAssignment struct {
	Task
	Assignment *Assignment
}
