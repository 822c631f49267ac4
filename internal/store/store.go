// Package store implements the local record cache.
//
// Each collection is persisted as a JSON array in its own file under the
// state directory, keyed by a fixed, versioned name (users_v1.json and
// so on). The key version doubles as the persisted-format version: a file
// under an older key is simply absent data, never a parse error.
//
// Reads and writes are total from the caller's perspective. A missing or
// corrupt file degrades to an empty collection with a logged warning; a
// failed write is logged and leaves the previous state on disk. The cache
// is the durable source of truth for the rest of the application, so no
// storage failure is allowed to escape this package as an error.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arclist/arclist/internal/model"
)

// keyVersion marks the persisted format. Bump it to make older state
// read as absent rather than attempt a cross-version parse.
const keyVersion = "v1"

const sessionKey = "session_" + keyVersion + ".json"

// Store is the local cache of the four record collections plus the
// session record. Safe for concurrent use.
type Store struct {
	dir    string
	logger *log.Logger

	mu      sync.Mutex
	onWrite []func(model.Collection)
}

// Open prepares a cache store rooted at dir, creating it if needed.
// If logger is nil, a default logger writing to stderr is used.
func Open(dir string, logger *log.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the state directory the store persists into.
func (s *Store) Dir() string {
	return s.dir
}

// OnWrite registers fn to be called after every successful collection
// write. The sync engine uses this to schedule pushes; session writes do
// not fire it.
func (s *Store) OnWrite(fn func(model.Collection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = append(s.onWrite, fn)
}

// CollectionKey returns the versioned file name a collection persists under.
func CollectionKey(c model.Collection) string {
	return fmt.Sprintf("%s_%s.json", c, keyVersion)
}

// CollectionForKey maps a cache file name back to its collection.
// Returns false for the session record and for unknown or mismatched
// version keys.
func CollectionForKey(name string) (model.Collection, bool) {
	for _, c := range model.Collections() {
		if name == CollectionKey(c) {
			return c, true
		}
	}
	return "", false
}

// ReadRaw returns the serialized text of a collection. Missing state or
// a corrupt file degrades to an empty array; the result is always a
// valid JSON array.
func (s *Store) ReadRaw(c model.Collection) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRawLocked(c)
}

func (s *Store) readRawLocked(c model.Collection) json.RawMessage {
	path := filepath.Join(s.dir, CollectionKey(c))
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("WARNING: failed to read %s: %v (using empty collection)", c, err)
		}
		return json.RawMessage("[]")
	}
	if !isJSONArray(data) {
		s.logger.Printf("WARNING: corrupt cache entry for %s (using empty collection)", c)
		return json.RawMessage("[]")
	}
	return data
}

// WriteRaw replaces a collection's serialized text. The payload must be
// a JSON array; anything else is treated like a write failure: logged,
// prior state untouched. Returns true when the state was persisted.
func (s *Store) WriteRaw(c model.Collection, raw json.RawMessage) bool {
	s.mu.Lock()
	if !isJSONArray(raw) {
		s.logger.Printf("WARNING: refusing to write non-array payload for %s", c)
		s.mu.Unlock()
		return false
	}
	ok := s.writeFileLocked(CollectionKey(c), raw)
	hooks := make([]func(model.Collection), len(s.onWrite))
	copy(hooks, s.onWrite)
	s.mu.Unlock()

	if ok {
		for _, fn := range hooks {
			fn(c)
		}
	}
	return ok
}

// ReplaceRaw is WriteRaw without firing OnWrite hooks. The sync engine
// uses it when applying freshly pulled remote state, which would
// otherwise immediately schedule a push of the data just received.
func (s *Store) ReplaceRaw(c model.Collection, raw json.RawMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isJSONArray(raw) {
		s.logger.Printf("WARNING: refusing to write non-array payload for %s", c)
		return false
	}
	return s.writeFileLocked(CollectionKey(c), raw)
}

// writeFileLocked persists data atomically via a temp file and rename so
// a crash mid-write cannot corrupt the previous state.
func (s *Store) writeFileLocked(name string, data []byte) bool {
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Printf("WARNING: failed to write %s: %v (keeping previous state)", name, err)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Printf("WARNING: failed to replace %s: %v (keeping previous state)", name, err)
		_ = os.Remove(tmp)
		return false
	}
	return true
}

// isJSONArray reports whether data parses as a JSON array.
func isJSONArray(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "[") {
		return false
	}
	var probe []json.RawMessage
	return json.Unmarshal(data, &probe) == nil
}

// readCollection decodes a collection into typed records. Decode
// failures degrade to an empty slice, matching ReadRaw.
func readCollection[T any](s *Store, c model.Collection) []T {
	raw := s.ReadRaw(c)
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		s.logger.Printf("WARNING: failed to decode %s: %v (using empty collection)", c, err)
		return []T{}
	}
	if records == nil {
		records = []T{}
	}
	return records
}

// writeCollection encodes typed records and persists them.
func writeCollection[T any](s *Store, c model.Collection, records []T) bool {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		s.logger.Printf("WARNING: failed to encode %s: %v (keeping previous state)", c, err)
		return false
	}
	return s.WriteRaw(c, data)
}

// Users returns the users collection.
func (s *Store) Users() []model.User {
	return readCollection[model.User](s, model.CollectionUsers)
}

// SaveUsers replaces the users collection.
func (s *Store) SaveUsers(users []model.User) bool {
	return writeCollection(s, model.CollectionUsers, users)
}

// Levels returns the levels collection.
func (s *Store) Levels() []model.Level {
	return readCollection[model.Level](s, model.CollectionLevels)
}

// SaveLevels replaces the levels collection.
func (s *Store) SaveLevels(levels []model.Level) bool {
	return writeCollection(s, model.CollectionLevels, levels)
}

// Submissions returns the pending submissions collection.
func (s *Store) Submissions() []model.Submission {
	return readCollection[model.Submission](s, model.CollectionSubmissions)
}

// SaveSubmissions replaces the submissions collection.
func (s *Store) SaveSubmissions(subs []model.Submission) bool {
	return writeCollection(s, model.CollectionSubmissions, subs)
}

// AuditLog returns the audit collection.
func (s *Store) AuditLog() []model.AuditEntry {
	return readCollection[model.AuditEntry](s, model.CollectionAuditLog)
}

// SaveAuditLog replaces the audit collection.
func (s *Store) SaveAuditLog(entries []model.AuditEntry) bool {
	return writeCollection(s, model.CollectionAuditLog, entries)
}

// AppendAudit appends one entry to the audit collection.
func (s *Store) AppendAudit(entry model.AuditEntry) bool {
	return s.SaveAuditLog(append(s.AuditLog(), entry))
}

// Session returns the persisted session, or nil when absent or corrupt.
func (s *Store) Session() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, sessionKey))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("WARNING: failed to read session: %v", err)
		}
		return nil
	}
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Printf("WARNING: corrupt session entry: %v (discarding)", err)
		return nil
	}
	return &sess
}

// SaveSession persists the session record.
func (s *Store) SaveSession(sess *model.Session) bool {
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.Printf("WARNING: failed to encode session: %v", err)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFileLocked(sessionKey, data)
}

// ClearSession removes the session record. Missing state is not an error.
func (s *Store) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(s.dir, sessionKey)); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("WARNING: failed to clear session: %v", err)
	}
}
