package models

import "time"

// Ad is a promotional image shown on the public ads page.
type Ad struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Image     string    `json:"image" db:"image"`
	ImageURL  string    `json:"image_url,omitempty" db:"-"`
	Link      string    `json:"link" db:"link"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
