package approval

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/pysugar/postflow/internal/db"
	"github.com/pysugar/postflow/internal/db/models"
)

// ErrNotFound is returned when a command names a post id that does not exist.
var ErrNotFound = errors.New("post not found")

// ErrInvalidTransition is returned when approve is attempted on a post that
// already left the pending state.
var ErrInvalidTransition = errors.New("post is not pending")

// Gateway performs the external publish call.
type Gateway interface {
	Publish(ctx context.Context, content, imagePath string) (externalPostID string, err error)
}

// Machine moves posts through the pending/approved/rejected lifecycle.
// Approved and rejected are terminal states.
type Machine struct {
	store   *db.Store
	gateway Gateway

	// per-post advisory locks guard against a double-submitted approve
	// racing itself; they do not change success/failure semantics.
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewMachine creates the approval state machine.
func NewMachine(store *db.Store, gateway Gateway) *Machine {
	return &Machine{
		store:   store,
		gateway: gateway,
		locks:   make(map[uint]*sync.Mutex),
	}
}

func (m *Machine) lockFor(id uint) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Approve publishes a pending post externally, then marks it approved and
// appends the history entry in one transaction. On any external failure the
// post stays pending and the operation is safely retryable.
func (m *Machine) Approve(ctx context.Context, id uint) (models.Post, error) {
	l := m.lockFor(id)
	l.Lock()
	defer l.Unlock()

	post, found, err := m.store.GetPost(id)
	if err != nil {
		return models.Post{}, err
	}
	if !found {
		return models.Post{}, ErrNotFound
	}
	if post.Status != models.StatusPending {
		return post, ErrInvalidTransition
	}

	externalID, err := m.gateway.Publish(ctx, post.Content, post.ImagePath)
	if err != nil {
		// Post stays pending; /approve can be retried.
		return post, err
	}

	if err := m.store.ApproveAndRecord(post, externalID); err != nil {
		return post, err
	}

	log.Printf("✅ Post %d approved and published (external id: %s)", id, externalID)
	post.Status = models.StatusApproved
	return post, nil
}

// Reject marks a post rejected regardless of its current status. The
// overwrite is deliberately idempotent and, unlike Approve, does not demand
// a pending post. Any local image artifact is removed best-effort.
func (m *Machine) Reject(id uint) (models.Post, error) {
	post, found, err := m.store.GetPost(id)
	if err != nil {
		return models.Post{}, err
	}
	if !found {
		return models.Post{}, ErrNotFound
	}

	if err := m.store.SetStatus(id, models.StatusRejected); err != nil {
		return post, err
	}

	if post.ImagePath != "" {
		if err := os.Remove(post.ImagePath); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️ Failed to delete image for post %d: %v", id, err)
		}
	}

	log.Printf("🗑 Post %d rejected", id)
	post.Status = models.StatusRejected
	return post, nil
}
