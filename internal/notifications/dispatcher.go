package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/tasks"
)

// EmailQueue enqueues transactional emails for background delivery.
// Implemented by the jobs client.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Dispatcher writes in-app notifications and enqueues emails. Delivery is
// best-effort: a failed insert or enqueue is logged, never propagated to the
// operation that triggered it.
type Dispatcher struct {
	repo   RepositoryPort
	queue  EmailQueue
	logger *slog.Logger
}

// NewDispatcher builds a Dispatcher. queue may be nil to disable email.
func NewDispatcher(repo RepositoryPort, queue EmailQueue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, queue: queue, logger: logger}
}

// TaskAssigned notifies the new assignee.
func (d *Dispatcher) TaskAssigned(ctx context.Context, task tasks.Task, assigneeID, actorID int64) {
	d.deliver(ctx, Notification{
		UserID:  assigneeID,
		ActorID: actorID,
		Kind:    KindTaskAssigned,
		Title:   "Task assigned",
		Body:    fmt.Sprintf("You were assigned %q.", task.Title),
		RefID:   task.ID.String(),
	})
}

// TaskDecided notifies the assignee about an approval decision.
func (d *Dispatcher) TaskDecided(ctx context.Context, task tasks.Task, assigneeID, actorID int64, approved bool) {
	kind := KindTaskRejected
	title := "Task rejected"
	body := fmt.Sprintf("%q was rejected and needs rework.", task.Title)
	if approved {
		kind = KindTaskApproved
		title = "Task approved"
		body = fmt.Sprintf("%q was approved.", task.Title)
	}
	d.deliver(ctx, Notification{
		UserID:  assigneeID,
		ActorID: actorID,
		Kind:    kind,
		Title:   title,
		Body:    body,
		RefID:   task.ID.String(),
	})
}

// TaskDueSoon reminds the assignee about an upcoming due date.
func (d *Dispatcher) TaskDueSoon(ctx context.Context, task tasks.Task, assigneeID int64) {
	body := fmt.Sprintf("%q is due soon.", task.Title)
	if task.DueDate != nil {
		body = fmt.Sprintf("%q is due %s.", task.Title, task.DueDate.Format("2006-01-02"))
	}
	d.deliver(ctx, Notification{
		UserID: assigneeID,
		Kind:   KindTaskDueSoon,
		Title:  "Task due soon",
		Body:   body,
		RefID:  task.ID.String(),
	})
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	if n.UserID == 0 {
		return
	}
	n.ID = uuid.New()
	if err := d.repo.Insert(ctx, n); err != nil {
		d.logf("insert notification", n, err)
		return
	}
	if d.queue == nil {
		return
	}
	email, err := d.repo.EmailOf(ctx, n.UserID)
	if err != nil || email == "" {
		d.logf("lookup notification email", n, err)
		return
	}
	if err := d.queue.EnqueueEmail(ctx, email, n.Title, n.Body); err != nil {
		d.logf("enqueue notification email", n, err)
	}
}

func (d *Dispatcher) logf(msg string, n Notification, err error) {
	if d.logger != nil {
		d.logger.Warn(msg, slog.Int64("user_id", n.UserID), slog.String("kind", string(n.Kind)), slog.Any("error", err))
	}
}

var _ tasks.Notifier = (*Dispatcher)(nil)
