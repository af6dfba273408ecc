package tasks

import (
	"time"

	"github.com/google/uuid"
)

// CreateTaskRequest carries the fields for a new task. Priority is clamped,
// not rejected; absent means 0.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Priority    *int   `json:"priority"`
	DueDate     string `json:"due_date"`
}

// UpdateTaskRequest carries editable task fields.
type UpdateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Priority    *int   `json:"priority"`
	DueDate     string `json:"due_date"`
}

// AssignTaskRequest names the new assignee.
type AssignTaskRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// DecisionRequest carries an optional note for approve/reject actions.
type DecisionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

// TaskResponse is a task plus the view state derived by the workflow
// evaluator.
type TaskResponse struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Status         Status         `json:"status"`
	StatusLabel    string         `json:"status_label"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	Step           int            `json:"step"`
	NextStatus     *Status        `json:"next_status,omitempty"`
	Priority       int            `json:"priority"`
	PriorityLabel  string         `json:"priority_label"`
	PriorityTier   PriorityTier   `json:"priority_tier"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	Overdue        bool           `json:"overdue"`
	DueSoon        bool           `json:"due_soon"`
	CreatorID      int64          `json:"creator_id"`
	AssigneeID     *int64         `json:"assignee_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewTaskResponse derives the presentation state for a task.
func NewTaskResponse(t Task, assignment *Assignment, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		StatusLabel:    StatusLabel(t.Status),
		ApprovalStatus: t.ApprovalStatus,
		Step:           StepIndex(t.Status, t.ApprovalStatus),
		Priority:       NormalizePriority(t.Priority),
		DueDate:        t.DueDate,
		Overdue:        Overdue(t, now),
		DueSoon:        DueSoon(t, now),
		CreatorID:      t.CreatorID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	resp.PriorityLabel, resp.PriorityTier = PriorityDisplay(t.Priority)
	if next, ok := NextStatus(t.Status, t.ApprovalStatus); ok {
		resp.NextStatus = &next
	}
	if assignment != nil {
		id := assignment.UserID
		resp.AssigneeID = &id
	}
	return resp
}
