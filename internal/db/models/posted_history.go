package models

import "time"

// PostedHistory is an append-only record of a successful publish.
// Rows are never updated or deleted; PostID is nullable so history
// survives post cleanup.
type PostedHistory struct {
	ID             string `gorm:"primaryKey"` // UUID
	PostID         *uint  `gorm:"index"`
	Content        string `gorm:"type:text"`
	ImageURL       string
	ExternalPostID string // id assigned by the publishing provider
	PostedAt       time.Time
}
