package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Kind labels what triggered a notification.
type Kind string

const (
	KindTaskAssigned Kind = "task_assigned"
	KindTaskApproved Kind = "task_approved"
	KindTaskRejected Kind = "task_rejected"
	KindTaskDueSoon  Kind = "task_due_soon"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	ActorID   int64     `json:"actor_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	RefID     string    `json:"ref_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
