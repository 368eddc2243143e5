package models

import "time"

// User represents a row of the users table. Username is the primary key and
// doubles as the session identity.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Exclude password hash from JSON responses
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
