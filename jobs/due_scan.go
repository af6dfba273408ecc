package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/notifications"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/tasks"
)

// NewDueScanHandler builds the handler for the periodic due date scan. It
// walks every open task whose due date falls inside the due-soon window and
// reminds the assignee. Tasks without an assignee are skipped; the creator
// already sees them on their own board.
func NewDueScanHandler(repo tasks.Repository, dispatcher *notifications.Dispatcher, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		now := time.Now()
		cutoff := now.AddDate(0, 0, 3)

		due, err := repo.ListDueBefore(ctx, cutoff)
		if err != nil {
			return err
		}

		reminded := 0
		for _, task := range due {
			if !tasks.DueSoon(task, now) {
				continue
			}
			assignment, err := repo.GetAssignment(ctx, task.ID)
			if err != nil {
				continue
			}
			dispatcher.TaskDueSoon(ctx, task, assignment.UserID)
			reminded++
		}

		if logger != nil {
			logger.Info("due date scan finished",
				slog.Int("scanned", len(due)),
				slog.Int("reminded", reminded))
		}
		return nil
	}
}
