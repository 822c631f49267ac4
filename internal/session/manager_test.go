package session

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/store"
)

// setupTestManager returns a manager with a pinned, advanceable clock.
func setupTestManager(t *testing.T, opts ...Option) (*Manager, *store.Store, *time.Time) {
	t.Helper()

	st, err := store.Open(t.TempDir(), log.New(os.Stderr, "[test] ", 0))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	m := New(st, log.New(os.Stderr, "[test] ", 0), opts...)
	return m, st, &now
}

func TestSetAndGet(t *testing.T) {
	m, _, now := setupTestManager(t)

	sess := m.Set(model.Session{UserID: "u1", Username: "alice"})
	if !sess.CreatedAt.Equal(*now) {
		t.Errorf("CreatedAt = %v, want %v", sess.CreatedAt, *now)
	}
	if !sess.LastActiveAt.Equal(*now) {
		t.Errorf("LastActiveAt = %v, want %v", sess.LastActiveAt, *now)
	}

	got := m.Get()
	if got == nil {
		t.Fatal("Get returned nil for a fresh session")
	}
	if got.UserID != "u1" || got.Username != "alice" {
		t.Errorf("session = %+v", got)
	}
}

func TestGetWithoutSession(t *testing.T) {
	m, _, _ := setupTestManager(t)
	if got := m.Get(); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
}

func TestIdleExpiry(t *testing.T) {
	m, st, now := setupTestManager(t)

	m.Set(model.Session{UserID: "u1", Username: "alice"})

	// One millisecond short of the limit: still valid.
	*now = now.Add(24*time.Hour - time.Millisecond)
	if got := m.Get(); got == nil {
		t.Fatal("session expired before the idle limit")
	}

	// The successful read refreshed last-active, so the clock must idle
	// the full limit again to expire.
	*now = now.Add(24 * time.Hour)
	if got := m.Get(); got != nil {
		t.Errorf("session survived the idle limit: %+v", got)
	}
	if st.Session() != nil {
		t.Error("expired session not cleared from storage")
	}
}

func TestIdleExpiryBoundary(t *testing.T) {
	m, _, now := setupTestManager(t)

	m.Set(model.Session{UserID: "u1", Username: "alice"})

	// Exactly at the limit counts as expired.
	*now = now.Add(24 * time.Hour)
	if got := m.Get(); got != nil {
		t.Errorf("session at exactly the idle limit not expired: %+v", got)
	}
}

func TestGetRefreshesLastActive(t *testing.T) {
	m, st, now := setupTestManager(t)

	m.Set(model.Session{UserID: "u1", Username: "alice"})

	*now = now.Add(time.Hour)
	m.Get()

	persisted := st.Session()
	if persisted == nil {
		t.Fatal("session missing")
	}
	if !persisted.LastActiveAt.Equal(*now) {
		t.Errorf("LastActiveAt = %v, want refreshed to %v", persisted.LastActiveAt, *now)
	}
}

func TestCustomIdleLimit(t *testing.T) {
	m, _, now := setupTestManager(t, WithIdleLimit(time.Minute))

	m.Set(model.Session{UserID: "u1", Username: "alice"})

	*now = now.Add(2 * time.Minute)
	if got := m.Get(); got != nil {
		t.Errorf("session survived past custom idle limit: %+v", got)
	}
}

func TestSetUpdatesLastLogin(t *testing.T) {
	m, st, now := setupTestManager(t)

	st.SaveUsers([]model.User{
		{ID: "u1", Username: "alice", Role: model.RoleUser},
		{ID: "u2", Username: "bob", Role: model.RoleUser},
	})

	m.Set(model.Session{UserID: "u1", Username: "alice"})

	users := st.Users()
	if !users[0].LastLoginAt.Equal(*now) {
		t.Errorf("LastLoginAt = %v, want %v", users[0].LastLoginAt, *now)
	}
	if !users[1].LastLoginAt.IsZero() {
		t.Errorf("unrelated user's LastLoginAt was stamped: %v", users[1].LastLoginAt)
	}
}

func TestClearWritesLogoutAudit(t *testing.T) {
	m, st, _ := setupTestManager(t)

	m.Set(model.Session{UserID: "u1", Username: "alice"})
	m.Clear()

	if st.Session() != nil {
		t.Error("session survived Clear")
	}
	entries := st.AuditLog()
	if len(entries) != 1 || entries[0].Action != "logout" || entries[0].Actor != "u1" {
		t.Errorf("expected one logout audit entry, got %+v", entries)
	}

	// Clearing with no session is a no-op, not a second audit entry.
	m.Clear()
	if got := len(st.AuditLog()); got != 1 {
		t.Errorf("audit entries = %d after redundant Clear, want 1", got)
	}
}
