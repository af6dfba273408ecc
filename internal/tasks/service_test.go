package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

type memoryTaskRepo struct {
	tasks          map[uuid.UUID]Task
	assignments    map[uuid.UUID]Assignment
	assignmentGets int
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{
		tasks:       make(map[uuid.UUID]Task),
		assignments: make(map[uuid.UUID]Assignment),
	}
}

func (r *memoryTaskRepo) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *memoryTaskRepo) List(ctx context.Context, filter ListFilter) ([]TaskWithAssignment, int, error) {
	var out []TaskWithAssignment
	for _, t := range r.tasks {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		a, assigned := r.assignments[t.ID]
		if filter.AssigneeID != nil && (!assigned || a.UserID != *filter.AssigneeID) {
			continue
		}
		item := TaskWithAssignment{Task: t}
		if assigned {
			assignment := a
			item.Assignment = &assignment
		}
		out = append(out, item)
	}
	return out, len(out), nil
}

func (r *memoryTaskRepo) Create(ctx context.Context, task Task) error {
	if _, ok := r.tasks[task.ID]; ok {
		return ErrAlreadyExists
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *memoryTaskRepo) Update(ctx context.Context, task Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *memoryTaskRepo) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	r.tasks[id] = t
	return nil
}

func (r *memoryTaskRepo) SetApproval(ctx context.Context, id uuid.UUID, approval ApprovalStatus) error {
	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	t.ApprovalStatus = approval
	r.tasks[id] = t
	return nil
}

func (r *memoryTaskRepo) Assign(ctx context.Context, a Assignment) error {
	a.AssignedAt = time.Now()
	r.assignments[a.TaskID] = a
	return nil
}

func (r *memoryTaskRepo) GetAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error) {
	r.assignmentGets++
	a, ok := r.assignments[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *memoryTaskRepo) ListDueBefore(ctx context.Context, cutoff time.Time) ([]Task, error) {
	var out []Task
	for _, t := range r.tasks {
		if t.DueDate != nil && t.DueDate.Before(cutoff) && t.Status != StatusCompleted && t.Status != StatusApproved {
			out = append(out, t)
		}
	}
	return out, nil
}

type staticMappingStore struct {
	mapping authz.Mapping
	err     error
}

func (s *staticMappingStore) FetchMapping(ctx context.Context) (authz.Mapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.mapping, nil
}

type staticDirectory struct {
	byUser map[int64][]authz.Department
}

func (d *staticDirectory) DepartmentsForUser(ctx context.Context, userID int64) ([]authz.Department, error) {
	return d.byUser[userID], nil
}

type recordingNotifier struct {
	assigned []int64
	decided  []bool
}

func (n *recordingNotifier) TaskAssigned(ctx context.Context, task Task, assigneeID, actorID int64) {
	n.assigned = append(n.assigned, assigneeID)
}

func (n *recordingNotifier) TaskDecided(ctx context.Context, task Task, assigneeID, actorID int64, approved bool) {
	n.decided = append(n.decided, approved)
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T, mapping authz.Mapping, dir DepartmentDirectory, notifier Notifier) (*Service, *memoryTaskRepo) {
	t.Helper()
	repo := newMemoryTaskRepo()
	cache := authz.NewCache(&staticMappingStore{mapping: mapping}, testLogger, 0)
	resolver := authz.NewResolver(cache, testLogger, nil)
	svc := NewService(repo, resolver, dir, testLogger, ServiceConfig{Notifier: notifier})
	return svc, repo
}

func grant(actions ...authz.Action) authz.Grant {
	g := authz.Grant{Actions: map[authz.Action]bool{}}
	for _, a := range actions {
		g.Actions[a] = true
	}
	return g
}

func managerMapping() authz.Mapping {
	approve := grant(authz.ActionApprove)
	approve.Delegated = map[authz.Action]bool{authz.ActionApprove: true}
	return authz.Mapping{
		"manager": {
			"tasks": grant(authz.ActionCreate, authz.ActionRead, authz.ActionUpdate, authz.ActionAssign),
		},
		"team_leader": {
			"tasks": approve,
		},
		"member": {
			"tasks": grant(authz.ActionRead, authz.ActionInteract),
		},
	}
}

func TestCreateRequiresPermission(t *testing.T) {
	svc, _ := newTestService(t, managerMapping(), nil, nil)

	member := authz.NewProfile(7, "m@example.com", "Member", []string{"member"})
	_, err := svc.Create(context.Background(), member, CreateTaskRequest{Title: "Ship it"})
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
	require.Equal(t, shared.PermTasksCreate, denied.Capability)

	manager := authz.NewProfile(1, "boss@example.com", "Boss", []string{"manager"})
	resp, err := svc.Create(context.Background(), manager, CreateTaskRequest{Title: "Ship it", Priority: intPtr(9)})
	require.NoError(t, err)
	require.Equal(t, StatusPending, resp.Status)
	require.Equal(t, 5, resp.Priority)
	require.Equal(t, 0, resp.Step)
}

func TestListLoadsAssigneesWithoutPerTaskLookups(t *testing.T) {
	svc, repo := newTestService(t, managerMapping(), nil, nil)

	assigned := uuid.New()
	unassigned := uuid.New()
	repo.tasks[assigned] = Task{ID: assigned, Title: "Audit", Status: StatusPending, CreatorID: 1}
	repo.tasks[unassigned] = Task{ID: unassigned, Title: "Plan", Status: StatusPending, CreatorID: 1}
	repo.assignments[assigned] = Assignment{TaskID: assigned, UserID: 7, AssignedBy: 1}

	manager := authz.NewProfile(1, "boss@example.com", "Boss", []string{"manager"})
	out, _, err := svc.List(context.Background(), manager, ListFilter{})
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := make(map[uuid.UUID]TaskResponse, len(out))
	for _, r := range out {
		byID[r.ID] = r
	}
	require.NotNil(t, byID[assigned].AssigneeID)
	require.Equal(t, int64(7), *byID[assigned].AssigneeID)
	require.Nil(t, byID[unassigned].AssigneeID)

	// The assignment rows ride along with the listing itself.
	require.Equal(t, 0, repo.assignmentGets)
}

func TestAssignNotifiesAndReassignNeedsSubPermission(t *testing.T) {
	mapping := managerMapping()
	mapping["dispatcher"] = map[string]authz.Grant{
		"tasks": {Actions: map[authz.Action]bool{authz.ActionRead: true}, Sub: map[string]bool{shared.SubTasksReassign: true}},
	}
	notifier := &recordingNotifier{}
	svc, repo := newTestService(t, mapping, nil, notifier)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Audit", Status: StatusPending, CreatorID: 1}

	manager := authz.NewProfile(1, "boss@example.com", "Boss", []string{"manager"})
	require.NoError(t, svc.Assign(context.Background(), manager, id, 7))
	require.Equal(t, []int64{7}, notifier.assigned)

	dispatcher := authz.NewProfile(2, "d@example.com", "Dispatcher", []string{"dispatcher"})
	require.NoError(t, svc.Assign(context.Background(), dispatcher, id, 8))
	require.Equal(t, int64(8), repo.assignments[id].UserID)

	member := authz.NewProfile(7, "m@example.com", "Member", []string{"member"})
	err := svc.Assign(context.Background(), member, id, 9)
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
}

func TestAdvanceWalksWorkflowAndStopsBeforeApproved(t *testing.T) {
	svc, repo := newTestService(t, managerMapping(), nil, nil)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Close books", Status: StatusPending, ApprovalStatus: ApprovalPending, CreatorID: 1}

	manager := authz.NewProfile(1, "boss@example.com", "Boss", []string{"manager"})

	resp, err := svc.Advance(context.Background(), manager, id)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, resp.Status)

	resp, err = svc.Advance(context.Background(), manager, id)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, resp.Status)

	_, err = svc.Advance(context.Background(), manager, id)
	require.ErrorIs(t, err, ErrNoNextStatus)
}

func TestAssigneeAdvancesOwnTask(t *testing.T) {
	svc, repo := newTestService(t, managerMapping(), nil, nil)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Prepare demo", Status: StatusPending, CreatorID: 1}
	repo.assignments[id] = Assignment{TaskID: id, UserID: 7, AssignedBy: 1}

	assignee := authz.NewProfile(7, "m@example.com", "Member", []string{"member"})
	resp, err := svc.Advance(context.Background(), assignee, id)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, resp.Status)

	other := authz.NewProfile(8, "o@example.com", "Other", []string{"member"})
	_, err = svc.Advance(context.Background(), other, id)
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)
}

func TestApproveRequiresCompletedStatus(t *testing.T) {
	svc, repo := newTestService(t, managerMapping(), &staticDirectory{}, nil)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Migrate data", Status: StatusInProgress, CreatorID: 1}

	admin := authz.NewProfile(99, "root@example.com", "Root", []string{authz.RoleSuperAdmin})
	err := svc.Approve(context.Background(), admin, id, "")
	require.ErrorIs(t, err, ErrNotCompleted)
}

func TestDelegatedApprovalScopedToDepartment(t *testing.T) {
	engineering := authz.Department{ID: 1, Name: "Engineering", ManagerID: 5, MemberIDs: []int64{7}}
	dir := &staticDirectory{byUser: map[int64][]authz.Department{7: {engineering}}}
	notifier := &recordingNotifier{}
	svc, repo := newTestService(t, managerMapping(), dir, notifier)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Release", Status: StatusCompleted, CreatorID: 1}
	repo.assignments[id] = Assignment{TaskID: id, UserID: 7, AssignedBy: 1}

	// Leads a different department, so the delegated grant does not apply.
	outsider := authz.NewProfile(6, "lead2@example.com", "Other Lead", []string{"team_leader"})
	err := svc.Approve(context.Background(), outsider, id, "lgtm")
	var denied *authz.DeniedError
	require.ErrorAs(t, err, &denied)

	leader := authz.NewProfile(5, "lead@example.com", "Lead", []string{"team_leader"})
	require.NoError(t, svc.Approve(context.Background(), leader, id, "lgtm"))
	require.Equal(t, ApprovalApproved, repo.tasks[id].ApprovalStatus)
	require.Equal(t, []bool{true}, notifier.decided)
}

func TestRejectRecordsDecision(t *testing.T) {
	svc, repo := newTestService(t, managerMapping(), &staticDirectory{}, nil)

	id := uuid.New()
	repo.tasks[id] = Task{ID: id, Title: "Review", Status: StatusCompleted, CreatorID: 1}

	admin := authz.NewProfile(99, "root@example.com", "Root", []string{authz.RoleSuperAdmin})
	require.NoError(t, svc.Reject(context.Background(), admin, id, "needs rework"))
	require.Equal(t, ApprovalRejected, repo.tasks[id].ApprovalStatus)
}

func TestServiceSurfacesCheckUnavailable(t *testing.T) {
	repo := newMemoryTaskRepo()
	cache := authz.NewCache(&staticMappingStore{err: errors.New("backend down")}, testLogger, 0)
	resolver := authz.NewResolver(cache, testLogger, nil)
	svc := NewService(repo, resolver, nil, testLogger, ServiceConfig{})

	member := authz.NewProfile(7, "m@example.com", "Member", []string{"member"})
	_, err := svc.Create(context.Background(), member, CreateTaskRequest{Title: "x"})
	require.ErrorIs(t, err, authz.ErrCheckUnavailable)
}

func intPtr(v int) *int { return &v }
