package models

import "time"

// OAuthToken stores the single live OAuth credential for a provider.
// The row is overwritten wholesale on every grant or refresh.
type OAuthToken struct {
	Provider     string `gorm:"primaryKey"` // e.g. "linkedin"
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // zero value means treat as always expired
	TokenType    string
	Scope        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
