package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pysugar/postflow/internal/db"
	"github.com/pysugar/postflow/internal/db/models"
	"golang.org/x/oauth2"
)

// CredentialError signals a missing or unrefreshable OAuth credential.
// It is unrecoverable without a fresh human-driven authorization code
// exchange; callers must surface it rather than retry.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential error: %s: %v", e.Reason, e.Err)
	}
	return "credential error: " + e.Reason
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Manager guarantees a valid, unexpired access token before every
// authenticated external call, refreshing through the provider's token
// endpoint when the stored one is expired or expiring.
type Manager struct {
	store    *db.Store
	config   *oauth2.Config
	provider string
	state    string // anti-replay state for the consent URL
}

// NewManager creates a token manager for one provider.
func NewManager(store *db.Store, config *oauth2.Config, provider string) *Manager {
	b := make([]byte, 16)
	rand.Read(b)
	return &Manager{
		store:    store,
		config:   config,
		provider: provider,
		state:    hex.EncodeToString(b),
	}
}

// State returns the CSRF state token used in the consent URL.
func (m *Manager) State() string { return m.state }

// AuthURL builds the provider's consent-screen URL. Pure construction,
// no side effects and no network call.
func (m *Manager) AuthURL() string {
	return m.config.AuthCodeURL(m.state, oauth2.AccessTypeOffline)
}

// EnsureValidToken returns a usable access token for the provider,
// performing a refresh-token grant first when the stored token is
// expired or expiring within the safety margin.
func (m *Manager) EnsureValidToken(ctx context.Context) (string, error) {
	if !m.store.IsTokenExpired(m.provider) {
		tok, _, err := m.store.GetToken(m.provider)
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	}

	tok, found, err := m.store.GetToken(m.provider)
	if err != nil {
		return "", err
	}
	if !found || tok.RefreshToken == "" {
		return "", &CredentialError{Reason: "no refresh token on record, re-authorization required (/auth url)"}
	}

	log.Printf("⚠️ Token for %s is expired/expiring, refreshing...", m.provider)

	source := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken})
	newTok, err := source.Token()
	if err != nil {
		return "", &CredentialError{Reason: "refresh token exchange failed", Err: err}
	}

	// Persist rotated refresh token if provided (RFC 6749 compliance)
	refreshToken := tok.RefreshToken
	if newTok.RefreshToken != "" && newTok.RefreshToken != refreshToken {
		log.Printf("🔄 Rotating refresh token for: %s", m.provider)
		refreshToken = newTok.RefreshToken
	}

	saved, err := m.store.SaveToken(m.provider, newTok.AccessToken, refreshToken,
		newTok.TokenType, tok.Scope, lifetimeSeconds(newTok.Expiry))
	if err != nil {
		return "", err
	}

	log.Printf("✅ Refreshed token for: %s (expires: %s)", m.provider, saved.ExpiresAt.Format(time.RFC3339))
	return saved.AccessToken, nil
}

// ExchangeCode performs the one-time authorization_code grant, persists the
// resulting credential and returns it with its lifetime in seconds for
// caller display.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (models.OAuthToken, int64, error) {
	tok, err := m.config.Exchange(ctx, code)
	if err != nil {
		return models.OAuthToken{}, 0, &CredentialError{Reason: "authorization code exchange failed", Err: err}
	}

	expiresIn := lifetimeSeconds(tok.Expiry)
	saved, err := m.store.SaveToken(m.provider, tok.AccessToken, tok.RefreshToken,
		tok.TokenType, scopeString(m.config.Scopes), expiresIn)
	if err != nil {
		return models.OAuthToken{}, 0, err
	}

	log.Printf("✅ Stored new credential for: %s (lifetime: %ds)", m.provider, expiresIn)
	return saved, expiresIn, nil
}

func lifetimeSeconds(expiry time.Time) int64 {
	if expiry.IsZero() {
		return 0
	}
	secs := int64(time.Until(expiry).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

func scopeString(scopes []string) string {
	return strings.Join(scopes, " ")
}
