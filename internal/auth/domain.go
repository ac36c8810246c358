package auth

import "time"

// User is an operator account allowed to view the dashboard.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
