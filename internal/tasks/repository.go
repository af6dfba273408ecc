package tasks

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("tasks: not found")
	ErrAlreadyExists = errors.New("tasks: already exists")
)

// ListFilter narrows task listings.
type ListFilter struct {
	Status     *Status
	AssigneeID *int64
	Page       int
	PerPage    int
}

// Repository defines task persistence.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]TaskWithAssignment, int, error)
	Create(ctx context.Context, task Task) error
	Update(ctx context.Context, task Task) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	SetApproval(ctx context.Context, id uuid.UUID, approval ApprovalStatus) error
	Assign(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error)
	ListDueBefore(ctx context.Context, cutoff time.Time) ([]Task, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const taskColumns = `id, title, description, status, approval_status, priority, due_date, creator_id, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	var status, approval string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &approval, &t.Priority, &t.DueDate, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Status = NormalizeStatus(status)
	t.ApprovalStatus = ApprovalStatus(approval)
	return &t, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)
	return scanTask(row)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]TaskWithAssignment, int, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	where := ` WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where += ` AND t.status=$` + itoa(len(args))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		where += ` AND a.user_id=$` + itoa(len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks t LEFT JOIN task_assignments a ON a.task_id = t.id` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	query := `SELECT t.id, t.title, t.description, t.status, t.approval_status, t.priority, t.due_date, t.creator_id, t.created_at, t.updated_at,
	a.user_id, a.assigned_by, a.assigned_at
FROM tasks t LEFT JOIN task_assignments a ON a.task_id = t.id` + where +
		` ORDER BY t.created_at DESC LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []TaskWithAssignment
	for rows.Next() {
		var t Task
		var status, approval string
		var assigneeID, assignedBy *int64
		var assignedAt *time.Time
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &status, &approval, &t.Priority, &t.DueDate, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt,
			&assigneeID, &assignedBy, &assignedAt); err != nil {
			return nil, 0, err
		}
		t.Status = NormalizeStatus(status)
		t.ApprovalStatus = ApprovalStatus(approval)

		item := TaskWithAssignment{Task: t}
		if assigneeID != nil {
			a := Assignment{TaskID: t.ID, UserID: *assigneeID}
			if assignedBy != nil {
				a.AssignedBy = *assignedBy
			}
			if assignedAt != nil {
				a.AssignedAt = *assignedAt
			}
			item.Assignment = &a
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) Create(ctx context.Context, task Task) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO tasks (id, title, description, status, approval_status, priority, due_date, creator_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.ApprovalStatus), task.Priority, task.DueDate, task.CreatorID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *repository) Update(ctx context.Context, task Task) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET title=$2, description=$3, priority=$4, due_date=$5, updated_at=NOW() WHERE id=$1`,
		task.ID, task.Title, task.Description, task.Priority, task.DueDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetApproval(ctx context.Context, id uuid.UUID, approval ApprovalStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET approval_status=$2, updated_at=NOW() WHERE id=$1`, id, string(approval))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Assign(ctx context.Context, a Assignment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO task_assignments (task_id, user_id, assigned_by, assigned_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (task_id) DO UPDATE SET user_id=EXCLUDED.user_id, assigned_by=EXCLUDED.assigned_by, assigned_at=NOW()`,
			a.TaskID, a.UserID, a.AssignedBy)
		return err
	})
}

func (r *repository) GetAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error) {
	var a Assignment
	err := r.pool.QueryRow(ctx, `SELECT task_id, user_id, assigned_by, assigned_at FROM task_assignments WHERE task_id=$1`, taskID).
		Scan(&a.TaskID, &a.UserID, &a.AssignedBy, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE due_date IS NOT NULL AND due_date < $1 AND status NOT IN ('completed', 'approved')
ORDER BY due_date ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
