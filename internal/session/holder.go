package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a point-in-time view of the session.
type State struct {
	Token string
	User  *User
}

// Authenticated reports whether the state has a token and an unexpired user.
func (s State) Authenticated(now time.Time) bool {
	return s.Token != "" && s.User != nil && !s.User.Expired(now)
}

// Holder stores the access token and user. Watchers are notified on every change.
type Holder struct {
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	token    string
	user     *User
	watchers map[uuid.UUID]func(State)
}

// NewHolder creates an empty session holder.
func NewHolder(logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		logger:   logger.With("component", "session"),
		now:      time.Now,
		watchers: make(map[uuid.UUID]func(State)),
	}
}

// SetToken stores token and the user parsed from its claims.
func (h *Holder) SetToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	user, err := ParseToken(token)
	if err != nil {
		return err
	}
	h.SetSession(token, user)
	return nil
}

// SetSession stores an explicit token and user.
func (h *Holder) SetSession(token string, user User) {
	h.mu.Lock()
	h.token = token
	h.user = &user
	h.mu.Unlock()

	h.logger.Info("session updated", "account", user.AccountNo, "roles", user.Roles)
	h.notify()
}

// Reset clears the session.
func (h *Holder) Reset() {
	h.mu.Lock()
	changed := h.token != "" || h.user != nil
	h.token = ""
	h.user = nil
	h.mu.Unlock()

	if changed {
		h.logger.Info("session cleared")
		h.notify()
	}
}

// State returns the current session without checking expiry.
func (h *Holder) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

// IsAuthenticated reports whether a token and unexpired user are present.
// An expired session is cleared.
func (h *Holder) IsAuthenticated() bool {
	h.mu.Lock()
	s := h.stateLocked()
	h.mu.Unlock()

	if s.Token == "" || s.User == nil {
		return false
	}
	if s.User.Expired(h.now()) {
		h.logger.Info("session expired", "expires_at", s.User.ExpiresAt)
		h.Reset()
		return false
	}
	return true
}

// Watch registers fn to run after every change. The returned func unregisters it.
func (h *Holder) Watch(fn func(State)) func() {
	id := uuid.New()

	h.mu.Lock()
	h.watchers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

func (h *Holder) stateLocked() State {
	s := State{Token: h.token}
	if h.user != nil {
		u := *h.user
		s.User = &u
	}
	return s
}

func (h *Holder) notify() {
	h.mu.Lock()
	s := h.stateLocked()
	fns := make([]func(State), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
