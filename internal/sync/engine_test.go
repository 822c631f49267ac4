package sync

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/remote"
	"github.com/arclist/arclist/internal/store"
)

// fakeRemote is a stub data API. Per-collection responses for GET and
// recorded upsert bodies for POST.
type fakeRemote struct {
	mu      sync.Mutex
	pulls   map[string]string // collection -> JSON array body
	fail    map[string]bool   // collections answering 500
	pushed  map[string][]string
	pullHit map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		pulls:   make(map[string]string),
		fail:    make(map[string]bool),
		pushed:  make(map[string][]string),
		pullHit: make(map[string]int),
	}
}

func (f *fakeRemote) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

		f.mu.Lock()
		defer f.mu.Unlock()

		if f.fail[collection] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch r.Method {
		case http.MethodGet:
			f.pullHit[collection]++
			body, ok := f.pulls[collection]
			if !ok {
				body = "[]"
			}
			w.Write([]byte(body))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			f.pushed[collection] = append(f.pushed[collection], string(body))
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (f *fakeRemote) pushCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed[collection])
}

func (f *fakeRemote) pullCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullHit[collection]
}

// setupTestEngine wires a store, a fake remote and an engine together.
func setupTestEngine(t *testing.T, fake *fakeRemote, config *Config) (*Engine, *store.Store) {
	t.Helper()

	logger := log.New(os.Stderr, "[test] ", 0)

	st, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create remote client: %v", err)
	}

	if config == nil {
		config = DefaultConfig()
	}
	config.Logger = logger

	engine, err := New(st, client, config)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine, st
}

func TestBootstrapPullsAllCollections(t *testing.T) {
	fake := newFakeRemote()
	fake.pulls["users"] = `[{"id":"u1","username":"alice","role":"user"}]`
	fake.pulls["levels"] = `[{"id":"l1","name":"Bloodbath","status":"published","placement":1}]`

	engine, st := setupTestEngine(t, fake, nil)

	if ok := engine.Bootstrap(context.Background()); !ok {
		t.Error("Bootstrap reported stale collections")
	}

	if users := st.Users(); len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("users not applied from pull: %+v", users)
	}
	if levels := st.Levels(); len(levels) != 1 || levels[0].Name != "Bloodbath" {
		t.Errorf("levels not applied from pull: %+v", levels)
	}
	if subs := st.Submissions(); len(subs) != 0 {
		t.Errorf("expected empty submissions, got %d", len(subs))
	}
	for _, c := range model.Collections() {
		if n := fake.pullCount(string(c)); n != 1 {
			t.Errorf("collection %s pulled %d times, want 1", c, n)
		}
	}
}

func TestBootstrapPartialFailureKeepsLocalCopy(t *testing.T) {
	fake := newFakeRemote()
	fake.pulls["levels"] = `[{"id":"l1","name":"Bloodbath","status":"published","placement":1}]`
	fake.fail["users"] = true

	engine, st := setupTestEngine(t, fake, nil)

	// Pre-existing local users must survive the failed pull.
	st.SaveUsers([]model.User{{ID: "u9", Username: "local", Role: model.RoleUser}})

	if ok := engine.Bootstrap(context.Background()); ok {
		t.Error("Bootstrap reported success despite a failing collection")
	}

	if users := st.Users(); len(users) != 1 || users[0].ID != "u9" {
		t.Errorf("local users lost on failed pull: %+v", users)
	}
	if levels := st.Levels(); len(levels) != 1 {
		t.Errorf("healthy collection not applied: %+v", levels)
	}
}

func TestBootstrapDoesNotSchedulePushes(t *testing.T) {
	fake := newFakeRemote()
	fake.pulls["users"] = `[{"id":"u1","username":"alice","role":"user"}]`

	engine, _ := setupTestEngine(t, fake, nil)
	engine.Bootstrap(context.Background())

	// Flush would push anything the pull queued. Nothing should go out.
	engine.Flush(context.Background())
	for _, c := range model.Collections() {
		if n := fake.pushCount(string(c)); n != 0 {
			t.Errorf("pull of %s scheduled a push (%d)", c, n)
		}
	}
}

func TestSaveSchedulesAndFlushPushes(t *testing.T) {
	fake := newFakeRemote()
	engine, st := setupTestEngine(t, fake, nil)

	st.SaveUsers([]model.User{{ID: "u1", Username: "alice", Role: model.RoleUser}})

	if ok := engine.Flush(context.Background()); !ok {
		t.Error("Flush reported failure")
	}
	if n := fake.pushCount("users"); n != 1 {
		t.Errorf("users pushed %d times, want 1", n)
	}
	if n := fake.pushCount("levels"); n != 0 {
		t.Errorf("clean collection pushed %d times, want 0", n)
	}

	// Queue drained: a second flush pushes nothing new.
	engine.Flush(context.Background())
	if n := fake.pushCount("users"); n != 1 {
		t.Errorf("drained queue re-pushed users (%d)", n)
	}
}

func TestPushAllContinuesPastFailure(t *testing.T) {
	fake := newFakeRemote()
	fake.fail["users"] = true

	engine, st := setupTestEngine(t, fake, nil)
	st.SaveUsers([]model.User{{ID: "u1", Username: "alice", Role: model.RoleUser}})
	st.SaveLevels([]model.Level{{ID: "l1", Name: "x", Status: model.LevelPending}})

	if ok := engine.PushAll(context.Background()); ok {
		t.Error("PushAll reported success despite a failing collection")
	}
	if n := fake.pushCount("levels"); n != 1 {
		t.Errorf("levels pushed %d times, want 1 (failure on users must not abort)", n)
	}
}

func TestStartStop(t *testing.T) {
	fake := newFakeRemote()
	engine, _ := setupTestEngine(t, fake, nil)

	if err := engine.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := engine.Start(); err == nil {
		t.Error("second Start should fail")
	}
	engine.Stop()
}

type recordingNotifier struct {
	mu     sync.Mutex
	pulled []string
	pushed []string
}

func (n *recordingNotifier) CollectionPulled(c model.Collection, records int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pulled = append(n.pulled, string(c))
}

func (n *recordingNotifier) CollectionPushed(c model.Collection, records int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, string(c))
}

func TestNotifierEvents(t *testing.T) {
	fake := newFakeRemote()
	notifier := &recordingNotifier{}

	engine, st := setupTestEngine(t, fake, &Config{Notifier: notifier})

	engine.Bootstrap(context.Background())
	if len(notifier.pulled) != len(model.Collections()) {
		t.Errorf("pulled events = %d, want %d", len(notifier.pulled), len(model.Collections()))
	}

	st.SaveUsers([]model.User{{ID: "u1", Username: "alice", Role: model.RoleUser}})
	engine.Flush(context.Background())
	if len(notifier.pushed) != 1 || notifier.pushed[0] != "users" {
		t.Errorf("pushed events = %v, want [users]", notifier.pushed)
	}
}

func TestCountRecords(t *testing.T) {
	if n := countRecords([]byte(`[{"id":"1"},{"id":"2"}]`)); n != 2 {
		t.Errorf("countRecords = %d, want 2", n)
	}
	if n := countRecords([]byte(`[]`)); n != 0 {
		t.Errorf("countRecords = %d, want 0", n)
	}
	if n := countRecords([]byte(`garbage`)); n != 0 {
		t.Errorf("countRecords on garbage = %d, want 0", n)
	}
}
