package roles

import "time"

// Role represents a role for management.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is one row of a role's grant table. A row with a SubKey is a
// fine-grained toggle nested under the resource; otherwise Action applies.
type Permission struct {
	Resource  string `json:"resource"`
	Action    string `json:"action,omitempty"`
	SubKey    string `json:"sub_key,omitempty"`
	Allowed   bool   `json:"allowed"`
	Delegated bool   `json:"delegated,omitempty"`
}
