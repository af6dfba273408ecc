package notifications

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort defines data access methods for notifications.
type RepositoryPort interface {
	Insert(ctx context.Context, n Notification) error
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID int64, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID int64) error
	EmailOf(ctx context.Context, userID int64) (string, error)
}

// Service handles notification reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListForUser returns the user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// UnreadCount returns the user's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, userID int64, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead flags all of the user's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllRead(ctx, userID)
}
