package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

var (
	// ErrNoNextStatus indicates the workflow has no direct next step.
	ErrNoNextStatus = errors.New("tasks: no next status; completed tasks advance through approval")
	// ErrNotCompleted indicates an approval decision on a task that is not completed.
	ErrNotCompleted = errors.New("tasks: only completed tasks can be approved or rejected")
)

const approvalModule = "tasks"

// DepartmentDirectory resolves the departments a user belongs to or manages.
type DepartmentDirectory interface {
	DepartmentsForUser(ctx context.Context, userID int64) ([]authz.Department, error)
}

// Notifier emits task notifications. Implementations are best-effort and
// must not fail the triggering operation.
type Notifier interface {
	TaskAssigned(ctx context.Context, task Task, assigneeID, actorID int64)
	TaskDecided(ctx context.Context, task Task, assigneeID, actorID int64, approved bool)
}

// TransitionObserver records workflow transitions. Implemented by the
// metrics layer.
type TransitionObserver interface {
	TaskTransition(from, to string)
}

// Service orchestrates task operations behind permission checks.
type Service struct {
	repo        Repository
	resolver    *authz.Resolver
	departments DepartmentDirectory
	approvals   *shared.ApprovalRecorder
	audit       *shared.AuditLogger
	notifier    Notifier
	observer    TransitionObserver
	logger      *slog.Logger
	now         func() time.Time
}

// ServiceConfig groups optional service collaborators.
type ServiceConfig struct {
	Approvals *shared.ApprovalRecorder
	Audit     *shared.AuditLogger
	Notifier  Notifier
	Observer  TransitionObserver
	Clock     func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, resolver *authz.Resolver, departments DepartmentDirectory, logger *slog.Logger, cfg ServiceConfig) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:        repo,
		resolver:    resolver,
		departments: departments,
		approvals:   cfg.Approvals,
		audit:       cfg.Audit,
		notifier:    cfg.Notifier,
		observer:    cfg.Observer,
		logger:      logger,
		now:         now,
	}
}

// Create inserts a new pending task.
func (s *Service) Create(ctx context.Context, p authz.Profile, req CreateTaskRequest) (*TaskResponse, error) {
	if err := s.require(ctx, p, authz.ActionCreate, shared.PermTasksCreate); err != nil {
		return nil, err
	}

	task := Task{
		ID:             uuid.New(),
		Title:          req.Title,
		Description:    req.Description,
		Status:         StatusPending,
		ApprovalStatus: ApprovalPending,
		Priority:       PriorityOrDefault(req.Priority),
		DueDate:        ParseDueDate(req.DueDate),
		CreatorID:      p.ID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.recordAudit(ctx, p.ID, "task.create", task.ID, nil)
	resp := NewTaskResponse(task, nil, s.now())
	return &resp, nil
}

// Get fetches one task with derived view state.
func (s *Service) Get(ctx context.Context, p authz.Profile, id uuid.UUID) (*TaskResponse, error) {
	if err := s.require(ctx, p, authz.ActionRead, shared.PermTasksView); err != nil {
		return nil, err
	}
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	assignment := s.assignmentOf(ctx, id)
	resp := NewTaskResponse(*task, assignment, s.now())
	return &resp, nil
}

// List returns tasks matching the filter.
func (s *Service) List(ctx context.Context, p authz.Profile, filter ListFilter) ([]TaskResponse, shared.Pagination, error) {
	if err := s.require(ctx, p, authz.ActionRead, shared.PermTasksView); err != nil {
		return nil, shared.Pagination{}, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	now := s.now()
	out := make([]TaskResponse, 0, len(items))
	for _, it := range items {
		out = append(out, NewTaskResponse(it.Task, it.Assignment, now))
	}
	return out, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update edits task fields. Status is not editable here; it moves through
// Advance and the approval actions only.
func (s *Service) Update(ctx context.Context, p authz.Profile, id uuid.UUID, req UpdateTaskRequest) (*TaskResponse, error) {
	if err := s.require(ctx, p, authz.ActionUpdate, shared.PermTasksEdit); err != nil {
		return nil, err
	}
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Title = req.Title
	task.Description = req.Description
	task.Priority = PriorityOrDefault(req.Priority)
	task.DueDate = ParseDueDate(req.DueDate)
	if err := s.repo.Update(ctx, *task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recordAudit(ctx, p.ID, "task.update", id, nil)
	resp := NewTaskResponse(*task, s.assignmentOf(ctx, id), s.now())
	return &resp, nil
}

// Assign sets or replaces the task's assignee. Reassigning an already
// assigned task needs either the assign permission or the reassign
// sub-permission.
func (s *Service) Assign(ctx context.Context, p authz.Profile, id uuid.UUID, assigneeID int64) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := s.resolver.Can(ctx, p, approvalModule, authz.ActionAssign)
	if err != nil {
		return err
	}
	if !allowed {
		allowed, err = s.resolver.CanSub(ctx, p, approvalModule, shared.SubTasksReassign)
		if err != nil {
			return err
		}
	}
	if !allowed {
		return authz.Deny(shared.PermTasksAssign)
	}

	if err := s.repo.Assign(ctx, Assignment{TaskID: id, UserID: assigneeID, AssignedBy: p.ID}); err != nil {
		return fmt.Errorf("assign task: %w", err)
	}

	s.recordAudit(ctx, p.ID, "task.assign", id, map[string]any{"assignee_id": assigneeID})
	if s.notifier != nil {
		s.notifier.TaskAssigned(ctx, *task, assigneeID, p.ID)
	}
	return nil
}

// Advance moves the task one workflow step forward. The assignee may
// advance their own task with the interact permission; anyone with the edit
// permission may advance any task. Approved is never a transition target.
func (s *Service) Advance(ctx context.Context, p authz.Profile, id uuid.UUID) (*TaskResponse, error) {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	assignment := s.assignmentOf(ctx, id)

	allowed, err := s.resolver.Can(ctx, p, approvalModule, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if !allowed && assignment != nil && assignment.UserID == p.ID {
		allowed, err = s.resolver.Can(ctx, p, approvalModule, authz.ActionInteract)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, authz.Deny(shared.PermTasksEdit)
	}

	next, ok := NextStatus(task.Status, task.ApprovalStatus)
	if !ok {
		return nil, ErrNoNextStatus
	}
	if err := s.repo.SetStatus(ctx, id, next); err != nil {
		return nil, fmt.Errorf("advance task: %w", err)
	}

	if s.observer != nil {
		s.observer.TaskTransition(string(task.Status), string(next))
	}
	s.recordAudit(ctx, p.ID, "task.advance", id, map[string]any{"from": string(task.Status), "to": string(next)})

	task.Status = next
	resp := NewTaskResponse(*task, assignment, s.now())
	return &resp, nil
}

// Approve marks a completed task as approved. The approve permission may be
// department-delegated, in which case the actor must manage or belong to a
// department of the task's assignee (or creator when unassigned).
func (s *Service) Approve(ctx context.Context, p authz.Profile, id uuid.UUID, note string) error {
	return s.decide(ctx, p, id, note, true)
}

// Reject marks a completed task as rejected.
func (s *Service) Reject(ctx context.Context, p authz.Profile, id uuid.UUID, note string) error {
	return s.decide(ctx, p, id, note, false)
}

func (s *Service) decide(ctx context.Context, p authz.Profile, id uuid.UUID, note string, approved bool) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status != StatusCompleted {
		return ErrNotCompleted
	}

	assignment := s.assignmentOf(ctx, id)
	depts, err := s.departmentContext(ctx, task, assignment)
	if err != nil {
		return err
	}

	allowed, err := s.resolver.Can(ctx, p, approvalModule, authz.ActionApprove, depts...)
	if err != nil {
		return err
	}
	if !allowed {
		return authz.Deny(shared.PermTasksApprove)
	}

	approval := ApprovalRejected
	action := shared.ApprovalReject
	if approved {
		approval = ApprovalApproved
		action = shared.ApprovalApprove
	}
	if err := s.repo.SetApproval(ctx, id, approval); err != nil {
		return fmt.Errorf("set approval: %w", err)
	}

	if s.approvals != nil {
		if err := s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  approvalModule,
			RefID:   id,
			ActorID: p.ID,
			Action:  action,
			Note:    note,
		}); err != nil && s.logger != nil {
			s.logger.Warn("record approval log", slog.Any("error", err))
		}
	}

	s.recordAudit(ctx, p.ID, "task."+string(action), id, nil)
	if s.notifier != nil && assignment != nil {
		s.notifier.TaskDecided(ctx, *task, assignment.UserID, p.ID, approved)
	}
	return nil
}

// departmentContext returns the departments relevant to a delegated
// approval: those of the task's assignee, falling back to the creator.
func (s *Service) departmentContext(ctx context.Context, task *Task, assignment *Assignment) ([]authz.Department, error) {
	if s.departments == nil {
		return nil, nil
	}
	subject := task.CreatorID
	if assignment != nil {
		subject = assignment.UserID
	}
	depts, err := s.departments.DepartmentsForUser(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz.ErrCheckUnavailable, err)
	}
	return depts, nil
}

func (s *Service) require(ctx context.Context, p authz.Profile, action authz.Action, capability string) error {
	allowed, err := s.resolver.Can(ctx, p, approvalModule, action)
	if err != nil {
		return err
	}
	if !allowed {
		return authz.Deny(capability)
	}
	return nil
}

func (s *Service) assignmentOf(ctx context.Context, id uuid.UUID) *Assignment {
	assignment, err := s.repo.GetAssignment(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && s.logger != nil {
			s.logger.Warn("load assignment", slog.Any("error", err))
		}
		return nil
	}
	return assignment
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, taskID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "task",
		EntityID: taskID.String(),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("record audit log", slog.Any("error", err))
	}
}
