// Package session tracks the active user identity in the local cache.
//
// Expiry is judged lazily: there is no background timer, every read
// checks the idle duration and clears the session once it passes the
// limit. Reads that survive the check refresh the last-active stamp.
package session

import (
	"log"
	"os"
	"time"

	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/store"
)

// DefaultIdleLimit is how long a session may sit idle before a read
// expires it.
const DefaultIdleLimit = 24 * time.Hour

// Manager reads and writes the session record.
type Manager struct {
	store     *store.Store
	logger    *log.Logger
	idleLimit time.Duration

	now   func() time.Time
	newID func() string
}

// Option adjusts a Manager.
type Option func(*Manager)

// WithIdleLimit overrides the idle expiry limit.
func WithIdleLimit(d time.Duration) Option {
	return func(m *Manager) { m.idleLimit = d }
}

// WithClock overrides the time source. Tests use this to pin the clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a session manager over the cache store.
// If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}
	m := &Manager{
		store:     st,
		logger:    logger,
		idleLimit: DefaultIdleLimit,
		now:       time.Now,
		newID:     model.NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set persists sess, stamping creation and last-active times. When the
// session references a known user, that user's last-login is updated
// through the cache store.
func (m *Manager) Set(sess model.Session) model.Session {
	now := m.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.LastActiveAt = now
	m.store.SaveSession(&sess)

	if sess.UserID != "" {
		users := m.store.Users()
		for i := range users {
			if users[i].ID == sess.UserID {
				users[i].LastLoginAt = now
				m.store.SaveUsers(users)
				break
			}
		}
	}
	return sess
}

// Get returns the active session, or nil when none exists or the idle
// limit has passed. An expired session is cleared from storage; a live
// one gets its last-active stamp refreshed.
func (m *Manager) Get() *model.Session {
	sess := m.store.Session()
	if sess == nil {
		return nil
	}

	now := m.now()
	if now.Sub(sess.LastActiveAt) >= m.idleLimit {
		m.logger.Printf("Session for %s expired after %v idle", sess.Username, m.idleLimit)
		m.store.ClearSession()
		return nil
	}

	sess.LastActiveAt = now
	m.store.SaveSession(sess)
	return sess
}

// Clear removes the session. When a user was active, a logout entry is
// appended to the audit collection.
func (m *Manager) Clear() {
	sess := m.store.Session()
	m.store.ClearSession()
	if sess == nil || sess.UserID == "" {
		return
	}
	m.store.AppendAudit(model.AuditEntry{
		ID:     m.newID(),
		Actor:  sess.UserID,
		Action: "logout",
		At:     m.now(),
	})
}
