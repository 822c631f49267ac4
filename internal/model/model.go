// Package model defines the record types held in the local cache and
// mirrored to the remote data API.
//
// Records are flat, JSON-tagged structs with last-write-wins semantics:
// each record carries its own identifier and the remote upserts by id,
// so concurrent edits resolve to the most recently pushed copy.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Collection names a record collection. The same name is used as the
// remote table resource and as the basis for the local cache key.
type Collection string

const (
	CollectionUsers       Collection = "users"
	CollectionLevels      Collection = "levels"
	CollectionSubmissions Collection = "submissions"
	CollectionAuditLog    Collection = "audit_log"
)

// Collections returns all record collections in a fixed order.
func Collections() []Collection {
	return []Collection{
		CollectionUsers,
		CollectionLevels,
		CollectionSubmissions,
		CollectionAuditLog,
	}
}

// NewID mints a new record identifier.
func NewID() string {
	return uuid.NewString()
}

// Session is the active-user record persisted alongside the collections.
// It is local-only and never pushed to the remote store.
type Session struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// AuditEntry records a visible state change: who did what to which record.
type AuditEntry struct {
	ID      string            `json:"id"`
	Actor   string            `json:"actor"`
	Action  string            `json:"action"`
	Target  string            `json:"target,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	At      time.Time         `json:"at"`
}
