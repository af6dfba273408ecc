package departments

import "time"

// Department groups users under a manager. Delegated permission grants apply
// within the departments the acting user manages or belongs to.
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ManagerID int64     `json:"manager_id"`
	MemberIDs []int64   `json:"member_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
