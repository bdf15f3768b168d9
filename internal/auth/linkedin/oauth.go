package linkedin

import (
	"os"

	"golang.org/x/oauth2"
)

// Provider is the oauth_tokens key for the publishing API.
const Provider = "linkedin"

// Endpoint is LinkedIn's OAuth2 endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

// Scopes required for resolving the authenticated member and creating posts.
var Scopes = []string{
	"openid",
	"profile",
	"w_member_social",
}

// OAuthConfig returns the OAuth2 config for LinkedIn authentication.
// Environment variables override the supplied credentials.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if env := os.Getenv("LINKEDIN_CLIENT_ID"); env != "" {
		clientID = env
	}
	if env := os.Getenv("LINKEDIN_CLIENT_SECRET"); env != "" {
		clientSecret = env
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     Endpoint,
	}
}
