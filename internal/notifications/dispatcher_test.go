package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/tasks"
)

type memoryNotificationRepo struct {
	inserted  []Notification
	emails    map[int64]string
	insertErr error
}

func (r *memoryNotificationRepo) Insert(ctx context.Context, n Notification) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, n)
	return nil
}

func (r *memoryNotificationRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, error) {
	var out []Notification
	for _, n := range r.inserted {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *memoryNotificationRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range r.inserted {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotificationRepo) MarkRead(ctx context.Context, userID int64, id uuid.UUID) error {
	for i, n := range r.inserted {
		if n.ID == id && n.UserID == userID {
			r.inserted[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryNotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	for i, n := range r.inserted {
		if n.UserID == userID {
			r.inserted[i].Read = true
		}
	}
	return nil
}

func (r *memoryNotificationRepo) EmailOf(ctx context.Context, userID int64) (string, error) {
	email, ok := r.emails[userID]
	if !ok {
		return "", errors.New("no such user")
	}
	return email, nil
}

type recordingQueue struct {
	sent []string
	err  error
}

func (q *recordingQueue) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, to)
	return nil
}

func sampleTask() tasks.Task {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return tasks.Task{ID: uuid.New(), Title: "Quarterly report", DueDate: &due}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTaskAssignedWritesInAppAndEmail(t *testing.T) {
	repo := &memoryNotificationRepo{emails: map[int64]string{7: "assignee@test.local"}}
	queue := &recordingQueue{}
	d := NewDispatcher(repo, queue, discardLogger())

	d.TaskAssigned(context.Background(), sampleTask(), 7, 1)

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.inserted))
	}
	n := repo.inserted[0]
	if n.Kind != KindTaskAssigned || n.UserID != 7 || n.ActorID != 1 {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if len(queue.sent) != 1 || queue.sent[0] != "assignee@test.local" {
		t.Fatalf("expected email enqueued, got %v", queue.sent)
	}
}

func TestTaskDecidedKindFollowsOutcome(t *testing.T) {
	repo := &memoryNotificationRepo{emails: map[int64]string{7: "a@test.local"}}
	d := NewDispatcher(repo, nil, discardLogger())

	d.TaskDecided(context.Background(), sampleTask(), 7, 5, true)
	d.TaskDecided(context.Background(), sampleTask(), 7, 5, false)

	if len(repo.inserted) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(repo.inserted))
	}
	if repo.inserted[0].Kind != KindTaskApproved {
		t.Fatalf("expected approved kind, got %s", repo.inserted[0].Kind)
	}
	if repo.inserted[1].Kind != KindTaskRejected {
		t.Fatalf("expected rejected kind, got %s", repo.inserted[1].Kind)
	}
}

func TestDeliveryFailuresDoNotPanic(t *testing.T) {
	repo := &memoryNotificationRepo{insertErr: errors.New("db down")}
	queue := &recordingQueue{}
	d := NewDispatcher(repo, queue, discardLogger())

	d.TaskAssigned(context.Background(), sampleTask(), 7, 1)

	if len(queue.sent) != 0 {
		t.Fatalf("email must not be enqueued when the insert fails")
	}
}

func TestUnknownRecipientSkipsEmail(t *testing.T) {
	repo := &memoryNotificationRepo{emails: map[int64]string{}}
	queue := &recordingQueue{}
	d := NewDispatcher(repo, queue, discardLogger())

	d.TaskDueSoon(context.Background(), sampleTask(), 42)

	if len(repo.inserted) != 1 {
		t.Fatalf("in-app notification should still be written")
	}
	if len(queue.sent) != 0 {
		t.Fatalf("no email should be enqueued for unknown recipient")
	}
}

func TestZeroRecipientIgnored(t *testing.T) {
	repo := &memoryNotificationRepo{}
	d := NewDispatcher(repo, nil, discardLogger())

	d.TaskAssigned(context.Background(), sampleTask(), 0, 1)

	if len(repo.inserted) != 0 {
		t.Fatalf("notifications for user 0 must be dropped")
	}
}
