package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/db"
)

var (
	ErrNotFound  = errors.New("departments: not found")
	ErrNameTaken = errors.New("departments: name already in use")
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads one department with its member list.
func (r *Repository) Get(ctx context.Context, id int64) (*Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx, `SELECT id, name, manager_id, created_at, updated_at FROM departments WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	members, err := r.membersOf(ctx, id)
	if err != nil {
		return nil, err
	}
	d.MemberIDs = members
	return &d, nil
}

// List returns all departments with their member lists.
func (r *Repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, manager_id, created_at, updated_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.membersOf(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].MemberIDs = members
	}
	return out, nil
}

// ListForUser returns the departments the user manages or belongs to.
func (r *Repository) ListForUser(ctx context.Context, userID int64) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT d.id, d.name, d.manager_id, d.created_at, d.updated_at
FROM departments d
LEFT JOIN department_members m ON m.department_id = d.id
WHERE d.manager_id=$1 OR m.user_id=$1
ORDER BY d.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ManagerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.membersOf(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].MemberIDs = members
	}
	return out, nil
}

// Create inserts a department and returns its id.
func (r *Repository) Create(ctx context.Context, name string, managerID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO departments (name, manager_id, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW()) RETURNING id`, name, managerID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrNameTaken
	}
	return id, err
}

// SetManager replaces the department manager.
func (r *Repository) SetManager(ctx context.Context, id, managerID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET manager_id=$2, updated_at=NOW() WHERE id=$1`, id, managerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMember links a user to the department. Re-adding is a no-op.
func (r *Repository) AddMember(ctx context.Context, id, userID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		_, err := tx.Exec(ctx, `INSERT INTO department_members (department_id, user_id, created_at)
VALUES ($1, $2, NOW()) ON CONFLICT (department_id, user_id) DO NOTHING`, id, userID)
		return err
	})
}

// RemoveMember unlinks a user from the department.
func (r *Repository) RemoveMember(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM department_members WHERE department_id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) membersOf(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM department_members WHERE department_id=$1 ORDER BY user_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		members = append(members, userID)
	}
	return members, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
