package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID            int64
	Email         string
	EmailVerified bool
	Name          string
	Phone         string
	BirthDate     *time.Time
	PasswordHash  string
	IsActive      bool
	Roles         []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
