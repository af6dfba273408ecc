package tasks

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// The evaluator below is pure: everything derives from task fields and the
// supplied clock, nothing touches the store, and malformed input falls back
// to safe defaults instead of failing.

var titleCaser = cases.Title(language.English)

// NormalizeStatus maps any raw status string onto the canonical set. Legacy
// board exports prefix statuses with "column_", and "cancelled" is a retired
// alias for pending. Unrecognized input collapses to pending; the function
// is total.
func NormalizeStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "column_")
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusApproved:
		return Status(s)
	}
	return StatusPending
}

// StepIndex returns the workflow step to display. Approval outranks the raw
// status: a completed and approved task sits on the final step even though
// its status column still reads completed.
func StepIndex(status Status, approval ApprovalStatus) int {
	if status == StatusCompleted {
		if approval == ApprovalApproved {
			return 3
		}
		return 2
	}
	for i, step := range WorkflowSteps {
		if step == status {
			return i
		}
	}
	return 0
}

// NextStatus returns the next legal status and whether one exists. The
// workflow advances one step at a time, but approved is never a transition
// target: from completed the only way forward is the approval action.
func NextStatus(status Status, approval ApprovalStatus) (Status, bool) {
	switch status {
	case StatusPending:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	}
	return "", false
}

// Overdue reports whether the task's due date has passed. Completed tasks
// are never overdue; a missing due date never is either.
func Overdue(t Task, now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	return t.DueDate.Before(now)
}

// DueSoon reports whether the task is due within the next three days,
// counting from the start of today. Overdue and DueSoon are mutually
// exclusive.
func DueSoon(t Task, now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusCompleted {
		return false
	}
	if Overdue(t, now) {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	limit := today.AddDate(0, 0, 3)
	due := *t.DueDate
	return !due.Before(today) && due.Before(limit)
}

// NormalizePriority clamps a priority into the closed range [0,5].
func NormalizePriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > 5 {
		return 5
	}
	return p
}

// PriorityOrDefault resolves an optional priority, defaulting to 0.
func PriorityOrDefault(p *int) int {
	if p == nil {
		return 0
	}
	return NormalizePriority(*p)
}

// PriorityFromLegacy shifts the legacy 1-5 scale onto the 0-5 scale. Legacy
// 5 stays at 5, so the reverse conversion collapses 4 and 5; this mirrors
// the historical data and is intentionally lossy in that one spot.
func PriorityFromLegacy(old int) int {
	if old >= 5 {
		return 5
	}
	return NormalizePriority(old - 1)
}

// PriorityToLegacy shifts a 0-5 priority back onto the legacy 1-5 scale,
// clamping at 5.
func PriorityToLegacy(p int) int {
	p = NormalizePriority(p)
	if p >= 4 {
		return 5
	}
	return p + 1
}

// PriorityTier buckets priorities for icon and color selection.
type PriorityTier string

const (
	TierLow    PriorityTier = "low"
	TierMedium PriorityTier = "medium"
	TierHigh   PriorityTier = "high"
)

// PriorityDisplay buckets a priority into its visual tier and returns the
// human readable label.
func PriorityDisplay(priority int) (string, PriorityTier) {
	p := NormalizePriority(priority)
	var tier PriorityTier
	switch {
	case p <= 1:
		tier = TierLow
	case p <= 3:
		tier = TierMedium
	default:
		tier = TierHigh
	}
	return titleCaser.String(string(tier)), tier
}

// StatusLabel renders a status for display, e.g. "In Progress".
func StatusLabel(s Status) string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// ParseDueDate parses a due date from its wire representations. Malformed
// input yields nil rather than an error; the evaluator treats nil as "no
// due date".
func ParseDueDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
