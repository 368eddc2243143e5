package models

import "time"

// Feedback represents a row of the feedback table, owned by Username.
type Feedback struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
