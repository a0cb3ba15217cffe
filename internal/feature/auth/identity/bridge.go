// Package identity keeps the current signed-in user of each session in sync
// with the auth usecase's session notifications.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lumina_backend/internal/feature/auth/domain/entity"
	"lumina_backend/internal/feature/auth/usecase"
)

// DefaultName is shown when a user signed up without a display name.
const DefaultName = "Journaler"

// User is the minimal user record exposed to the rest of the application.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt int64 // epoch milliseconds
}

// Collaborator is the identity provider the bridge listens to.
type Collaborator interface {
	Subscribe(l usecase.Listener) usecase.Subscription
	GetSession(ctx context.Context, sessionID string) (*entity.Session, *entity.User, error)
}

// FromEntity maps an account to its minimal form.
func FromEntity(u entity.User) User {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = DefaultName
	}
	return User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      name,
		CreatedAt: u.CreatedAt.UnixMilli(),
	}
}

// Bridge resolves session IDs to users. Only its notification callback and its
// own session lookup write to the holder.
type Bridge struct {
	collab Collaborator
	holder *Holder
	sub    usecase.Subscription
}

// NewBridge subscribes to collab. Entries older than maxAge are re-verified
// against the collaborator; zero keeps them until a sign-out notification.
func NewBridge(collab Collaborator, maxAge time.Duration) *Bridge {
	b := &Bridge{
		collab: collab,
		holder: newHolder(maxAge),
	}
	b.sub = collab.Subscribe(b.onEvent)
	return b
}

func (b *Bridge) onEvent(e usecase.Event) {
	switch e.Type {
	case usecase.SignedIn:
		b.holder.set(e.SessionID, FromEntity(e.User), e.ExpiresAt)
	case usecase.SignedOut:
		b.holder.remove(e.SessionID)
	}
}

// Holder returns the read side of the bridge's state.
func (b *Bridge) Holder() *Holder {
	return b.holder
}

// Current returns the user signed in on sessionID. On a holder miss the session
// is retrieved from the collaborator, which rejects revoked or expired sessions.
func (b *Bridge) Current(ctx context.Context, sessionID string) (User, error) {
	if u, ok := b.holder.Get(sessionID); ok {
		return u, nil
	}

	session, account, err := b.collab.GetSession(ctx, sessionID)
	if err != nil {
		b.holder.remove(sessionID)
		return User{}, fmt.Errorf("resolve session: %w", err)
	}
	u := FromEntity(*account)
	b.holder.set(sessionID, u, session.ExpiresAt)
	slog.Debug("session restored", "session_id", sessionID, "user_id", u.ID)
	return u, nil
}

// ResolveSession returns the ID of the user signed in on sessionID.
func (b *Bridge) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	u, err := b.Current(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// Close stops listening for notifications. It is safe to call more than once.
func (b *Bridge) Close() {
	b.sub.Unsubscribe()
}

// Holder maps session IDs to signed-in users. Readers always receive copies.
type Holder struct {
	mu     sync.RWMutex
	maxAge time.Duration
	users  map[string]heldUser
	now    func() time.Time
}

type heldUser struct {
	user      User
	storedAt  time.Time
	expiresAt time.Time // zero: no known expiry
}

func (hu heldUser) expired(now time.Time) bool {
	return !hu.expiresAt.IsZero() && !now.Before(hu.expiresAt)
}

func newHolder(maxAge time.Duration) *Holder {
	return &Holder{
		maxAge: maxAge,
		users:  map[string]heldUser{},
		now:    time.Now,
	}
}

// Get returns the user held for sessionID, if present and not stale.
// A session past its expiry is a miss.
func (h *Holder) Get(sessionID string) (User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hu, ok := h.users[sessionID]
	if !ok {
		return User{}, false
	}
	now := h.now()
	if hu.expired(now) {
		return User{}, false
	}
	if h.maxAge > 0 && now.Sub(hu.storedAt) > h.maxAge {
		return User{}, false
	}
	return hu.user, true
}

// Sweep drops every expired session and returns how many were removed.
func (h *Holder) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	n := 0
	for id, hu := range h.users {
		if hu.expired(now) {
			delete(h.users, id)
			n++
		}
	}
	return n
}

// Len returns the number of held sessions.
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

func (h *Holder) set(sessionID string, u User, expiresAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[sessionID] = heldUser{user: u, storedAt: h.now(), expiresAt: expiresAt}
}

func (h *Holder) remove(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.users, sessionID)
}
