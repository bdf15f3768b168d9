package models

import "time"

// Post statuses. A post starts as pending and moves exactly once to
// approved or rejected; both are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Post is a generated content draft awaiting a human decision.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImagePath string    `json:"image_path,omitempty"` // local file, deleted on reject
	ImageURL  string    `json:"image_url,omitempty"`
	Status    string    `gorm:"index;default:'pending'" json:"status"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
