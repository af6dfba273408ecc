package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads the role permission mapping from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchMapping reads every role grant. Rows with a sub_key populate the
// fine-grained toggles; plain rows populate the action table.
func (r *Repository) FetchMapping(ctx context.Context) (Mapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT ro.name, rp.resource, rp.action, rp.allowed, rp.delegated, COALESCE(rp.sub_key, '')
FROM role_permissions rp
JOIN roles ro ON ro.id = rp.role_id
ORDER BY ro.name, rp.resource`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mapping := make(Mapping)
	for rows.Next() {
		var role, resource, action, subKey string
		var allowed, delegated bool
		if err := rows.Scan(&role, &resource, &action, &allowed, &delegated, &subKey); err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		grants, ok := mapping[role]
		if !ok {
			grants = make(map[string]Grant)
			mapping[role] = grants
		}
		grant, ok := grants[resource]
		if !ok {
			grant = Grant{
				Actions:   make(map[Action]bool),
				Delegated: make(map[Action]bool),
				Sub:       make(map[string]bool),
			}
		}
		if subKey != "" {
			grant.Sub[subKey] = true
		} else {
			grant.Actions[Action(action)] = true
			if delegated {
				grant.Delegated[Action(action)] = true
			}
		}
		grants[resource] = grant
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return mapping, nil
}
