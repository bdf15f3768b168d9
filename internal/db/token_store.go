package db

import (
	"errors"
	"time"

	"github.com/pysugar/postflow/internal/db/models"
	"gorm.io/gorm"
)

// ExpiryMargin is subtracted from a token's expiry when deciding whether it
// is still usable, so a token never expires mid-flight of a multi-step call.
const ExpiryMargin = 5 * time.Minute

// GetToken returns the stored credential for a provider, or found=false.
func (s *Store) GetToken(provider string) (models.OAuthToken, bool, error) {
	var tok models.OAuthToken
	err := s.db.First(&tok, "provider = ?", provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.OAuthToken{}, false, nil
	}
	if err != nil {
		return models.OAuthToken{}, false, err
	}
	return tok, true, nil
}

// SaveToken upserts the single credential row for a provider. When
// expiresIn (seconds) is positive the absolute expiry is recomputed as
// now+expiresIn; otherwise expiry is left unset, which IsTokenExpired
// treats as always expired.
func (s *Store) SaveToken(provider, accessToken, refreshToken, tokenType, scope string, expiresIn int64) (models.OAuthToken, error) {
	tok := models.OAuthToken{
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		Scope:        scope,
	}
	if expiresIn > 0 {
		tok.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	if err := s.db.Save(&tok).Error; err != nil {
		return models.OAuthToken{}, err
	}
	return tok, nil
}

// IsTokenExpired reports whether the provider's access token is missing,
// has no recorded expiry, or expires within ExpiryMargin from now.
func (s *Store) IsTokenExpired(provider string) bool {
	tok, found, err := s.GetToken(provider)
	if err != nil || !found {
		return true
	}
	if tok.ExpiresAt.IsZero() {
		return true
	}
	return !tok.ExpiresAt.After(time.Now().Add(ExpiryMargin))
}
