package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pysugar/postflow/internal/approval"
	"github.com/pysugar/postflow/internal/auth/token"
	"github.com/pysugar/postflow/internal/db"
	"github.com/pysugar/postflow/internal/generate"
	"github.com/pysugar/postflow/internal/publish"
)

const helpText = `Commands:
/generate <topic> - draft a new post about the topic
/list - show pending drafts
/approve <id> - publish a pending draft
/reject <id> - discard a draft
/status - pending count and credential state
/auth url - get the authorization link
/auth code <code> - finish authorization with the code
/help - this message`

// ValidationError reports a missing or malformed command argument before
// any state is touched.
type ValidationError struct {
	Usage string
}

func (e *ValidationError) Error() string { return "usage: " + e.Usage }

// Command carries one inbound chat command. The sender travels with the
// command instead of living in shared state.
type Command struct {
	ChatID int64
	Sender string
	Text   string
}

// Router parses slash commands and dispatches them to the core components.
type Router struct {
	store     *db.Store
	machine   *approval.Machine
	tokens    *token.Manager
	generator *generate.Generator
	provider  string
}

// NewRouter wires the command surface to its collaborators.
func NewRouter(store *db.Store, machine *approval.Machine, tokens *token.Manager, generator *generate.Generator, provider string) *Router {
	return &Router{
		store:     store,
		machine:   machine,
		tokens:    tokens,
		generator: generator,
		provider:  provider,
	}
}

// Handle executes one command to completion and returns the chat reply.
// Every error is converted to a human-readable message here; nothing
// escapes to crash the process.
func (r *Router) Handle(ctx context.Context, cmd Command) string {
	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	reply, err := r.dispatch(ctx, cmd, fields)
	if err != nil {
		return errorReply(err)
	}
	return reply
}

func (r *Router) dispatch(ctx context.Context, cmd Command, fields []string) (string, error) {
	switch fields[0] {
	case "/generate":
		topic := strings.TrimSpace(strings.TrimPrefix(cmd.Text, "/generate"))
		return r.handleGenerate(ctx, topic)
	case "/approve":
		id, err := parseID(fields, "/approve <id>")
		if err != nil {
			return "", err
		}
		return r.handleApprove(ctx, id)
	case "/reject":
		id, err := parseID(fields, "/reject <id>")
		if err != nil {
			return "", err
		}
		return r.handleReject(id)
	case "/list":
		return r.handleList()
	case "/status":
		return r.handleStatus()
	case "/auth":
		return r.handleAuth(ctx, fields)
	case "/help", "/start":
		return helpText, nil
	default:
		return "Unknown command. Try /help.", nil
	}
}

func parseID(fields []string, usage string) (uint, error) {
	if len(fields) < 2 {
		return 0, &ValidationError{Usage: usage}
	}
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, &ValidationError{Usage: usage}
	}
	return uint(id), nil
}

func (r *Router) handleGenerate(ctx context.Context, topic string) (string, error) {
	if topic == "" {
		return "", &ValidationError{Usage: "/generate <topic>"}
	}

	draft, err := r.generator.Generate(ctx, topic)
	if err != nil {
		return "", err
	}

	// Image step is best-effort; an empty path just means no image.
	imagePath := r.generator.FetchImage(ctx, draft.ImagePrompt)

	id, err := r.store.CreatePost(draft.Text, imagePath, "", topic)
	if err != nil {
		return "", err
	}

	reply := fmt.Sprintf("📝 Draft #%d created:\n\n%s", id, draft.Text)
	if imagePath != "" {
		reply += "\n\n🖼 Image attached."
	}
	reply += fmt.Sprintf("\n\nApprove with /approve %d or discard with /reject %d", id, id)
	return reply, nil
}

func (r *Router) handleApprove(ctx context.Context, id uint) (string, error) {
	if _, err := r.machine.Approve(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Post #%d published.", id), nil
}

func (r *Router) handleReject(id uint) (string, error) {
	if _, err := r.machine.Reject(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗑 Post #%d rejected.", id), nil
}

func (r *Router) handleList() (string, error) {
	posts, err := r.store.ListPending()
	if err != nil {
		return "", err
	}
	if len(posts) == 0 {
		return "No pending drafts.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pending drafts (%d):\n", len(posts))
	for _, p := range posts {
		fmt.Fprintf(&b, "\n#%d [%s] %s", p.ID, p.CreatedAt.Format("Jan 2 15:04"), preview(p.Content))
	}
	return b.String(), nil
}

func (r *Router) handleStatus() (string, error) {
	pending, err := r.store.CountPending()
	if err != nil {
		return "", err
	}

	cred := "❌ not authorized (run /auth url)"
	if tok, found, _ := r.store.GetToken(r.provider); found {
		switch {
		case !r.store.IsTokenExpired(r.provider):
			cred = fmt.Sprintf("✅ valid until %s", tok.ExpiresAt.Format(time.RFC3339))
		case tok.RefreshToken != "":
			cred = "🔄 expired, will refresh on next publish"
		default:
			cred = "❌ expired, re-authorization required (/auth url)"
		}
	}

	return fmt.Sprintf("Pending drafts: %d\nCredential (%s): %s", pending, r.provider, cred), nil
}

func (r *Router) handleAuth(ctx context.Context, fields []string) (string, error) {
	if len(fields) < 2 {
		return "", &ValidationError{Usage: "/auth url | /auth code <code>"}
	}

	switch fields[1] {
	case "url":
		return "Authorize here:\n" + r.tokens.AuthURL(), nil
	case "code":
		if len(fields) < 3 {
			return "", &ValidationError{Usage: "/auth code <code>"}
		}
		_, expiresIn, err := r.tokens.ExchangeCode(ctx, fields[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Authorized. Token valid for %d seconds.", expiresIn), nil
	default:
		return "", &ValidationError{Usage: "/auth url | /auth code <code>"}
	}
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) > 60 {
		return content[:57] + "..."
	}
	return content
}

// errorReply maps the error taxonomy to chat messages.
func errorReply(err error) string {
	var validationErr *ValidationError
	var credErr *token.CredentialError
	var extErr *publish.ExternalCallError

	switch {
	case errors.Is(err, approval.ErrNotFound):
		return "❌ No post with that id."
	case errors.Is(err, approval.ErrInvalidTransition):
		return "❌ That post was already approved or rejected."
	case errors.As(err, &validationErr):
		return "❌ " + validationErr.Error()
	case errors.As(err, &credErr):
		return "❌ Credential problem: " + credErr.Reason + "\nThe post is still pending."
	case errors.As(err, &extErr):
		return fmt.Sprintf("❌ Publish failed (%s). The post is still pending, retry with /approve.\n%v", extErr.Step, err)
	default:
		return "❌ " + err.Error()
	}
}
