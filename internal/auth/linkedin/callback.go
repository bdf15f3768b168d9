package linkedin

import (
	"fmt"
	"net/http"

	"github.com/pysugar/postflow/internal/auth/token"
)

// HandleCallback processes the OAuth redirect from the provider's consent
// screen, completing the authorization code exchange through the manager.
func HandleCallback(mgr *token.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Verify state token
		state := r.URL.Query().Get("state")
		if state != mgr.State() {
			http.Error(w, "Invalid state token", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}

		cred, expiresIn, err := mgr.ExchangeCode(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Authorization Successful</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; }
		.success { color: #4ade80; }
		code { background: #374151; padding: 2px 6px; border-radius: 4px; color: #fbbf24; }
	</style>
</head>
<body>
	<h1 class="success">✅ Authorization Successful!</h1>
	<p><strong>Provider:</strong> %s</p>
	<p><strong>Token lifetime:</strong> <code>%d seconds</code></p>
	<p>You can close this window and return to the chat.</p>
</body>
</html>`, cred.Provider, expiresIn)
	}
}
