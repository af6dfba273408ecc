package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeDueScan is the task type for the periodic due date scan.
	TaskTypeDueScan = "tasks:due_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewDueScanTask constructs the periodic due date scan task.
func NewDueScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeDueScan, nil)
}

// Sender delivers one email. Implemented by the SMTP mailer.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSendEmailHandler builds the handler processing TaskTypeSendEmail tasks.
// A malformed payload is dropped; a delivery failure is retried by asynq.
func NewSendEmailHandler(sender Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return sender.Send(ctx, payload.To, payload.Subject, payload.Body)
	}
}
