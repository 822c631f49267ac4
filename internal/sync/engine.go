// Package sync mirrors the local record cache to the remote data API.
//
// The engine:
//  1. Pulls all collections from the remote at startup (bootstrap)
//  2. Pushes collections marked dirty by local saves, debounced
//  3. Pushes every collection on a fixed interval as a safety net
//  4. Handles graceful shutdown
//
// Every remote failure stops at this package's boundary: pushes and
// pulls degrade to logged warnings so local reads and writes keep
// working fully offline. The remote resolves concurrent writers by
// upserting on record id, so re-pushing the same state is harmless.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/arclist/arclist/internal/model"
	"github.com/arclist/arclist/internal/remote"
	"github.com/arclist/arclist/internal/store"
)

// Notifier receives sync lifecycle events. The dashboard implements it;
// a nil notifier disables eventing.
type Notifier interface {
	CollectionPulled(c model.Collection, records int)
	CollectionPushed(c model.Collection, records int)
}

// Config holds configuration for the engine.
type Config struct {
	// PushInterval is how often every collection is pushed regardless
	// of dirtiness.
	PushInterval time.Duration

	// DebounceInterval is how long a dirty collection sits in the queue
	// before its deferred push runs, batching rapid saves together.
	DebounceInterval time.Duration

	// Watch enables an fsnotify watcher on the state directory so cache
	// writes made by another process also schedule pushes.
	Watch bool

	// Logger for engine activity.
	Logger *log.Logger

	// Notifier for sync events. Optional.
	Notifier Notifier
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PushInterval:     2 * time.Minute,
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Engine keeps the remote store in sync with the local cache.
type Engine struct {
	store  *store.Store
	remote *remote.Client
	config *Config

	dirtyMu sync.Mutex
	dirty   map[model.Collection]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startMu sync.Mutex
	started bool
}

// New creates an engine over the given cache and remote client.
// Local saves are tracked from this point on: the engine registers a
// store write hook immediately, so saves made before Start are pushed
// on the first flush or deferred pass.
func New(st *store.Store, client *remote.Client, config *Config) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("remote client cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if config.PushInterval <= 0 {
		config.PushInterval = 2 * time.Minute
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 250 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:  st,
		remote: client,
		config: config,
		dirty:  make(map[model.Collection]time.Time),
		ctx:    ctx,
		cancel: cancel,
	}
	st.OnWrite(e.Schedule)
	return e, nil
}

// Bootstrap pulls all collections from the remote into the local cache.
//
// Each collection is fetched concurrently and evaluated in isolation: a
// failing fetch leaves that collection's local copy as-is and does not
// block the others. Bootstrap never fails; the returned flag only says
// whether every collection refreshed, for logging.
func (e *Engine) Bootstrap(ctx context.Context) bool {
	e.config.Logger.Println("Bootstrap pull starting")

	var wg sync.WaitGroup
	var mu sync.Mutex
	allOK := true

	for _, c := range model.Collections() {
		wg.Add(1)
		go func(c model.Collection) {
			defer wg.Done()

			raw, err := e.remote.FetchAll(ctx, c)
			if err != nil {
				e.config.Logger.Printf("WARNING: bootstrap pull failed for %s: %v (keeping local copy)", c, err)
				mu.Lock()
				allOK = false
				mu.Unlock()
				return
			}
			if !e.store.ReplaceRaw(c, raw) {
				mu.Lock()
				allOK = false
				mu.Unlock()
				return
			}
			n := countRecords(raw)
			e.config.Logger.Printf("Pulled %s: %d records", c, n)
			if e.config.Notifier != nil {
				e.config.Notifier.CollectionPulled(c, n)
			}
		}(c)
	}
	wg.Wait()

	if allOK {
		e.config.Logger.Println("Bootstrap pull complete")
	} else {
		e.config.Logger.Println("Bootstrap pull finished with stale collections")
	}
	return allOK
}

// Schedule marks a collection dirty. The deferred push worker picks it
// up after the debounce interval; calling Schedule never blocks on the
// network and is safe before Start.
func (e *Engine) Schedule(c model.Collection) {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()
	e.dirty[c] = time.Now()
}

// Start launches the deferred and periodic push workers, plus the state
// directory watcher when configured. It does not block; use Stop to
// shut down.
func (e *Engine) Start() error {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return fmt.Errorf("engine already started")
	}
	e.started = true

	e.wg.Add(2)
	go e.processDirty()
	go e.periodicPush()

	if e.config.Watch {
		if err := e.startWatcher(); err != nil {
			e.config.Logger.Printf("WARNING: state watcher unavailable: %v", err)
		}
	}

	e.config.Logger.Printf("Engine started (push interval %v)", e.config.PushInterval)
	return nil
}

// Stop shuts the workers down and waits for them to finish.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	e.config.Logger.Println("Engine stopped")
}

// processDirty drains the dirty queue on a debounce tick.
func (e *Engine) processDirty() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			for _, c := range e.takeDirty(e.config.DebounceInterval) {
				if err := e.pushCollection(e.ctx, c); err != nil {
					e.config.Logger.Printf("WARNING: deferred push failed for %s: %v", c, err)
				}
			}
		}
	}
}

// takeDirty removes and returns collections that have been dirty for at
// least minAge. Zero minAge takes everything.
func (e *Engine) takeDirty(minAge time.Duration) []model.Collection {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()

	now := time.Now()
	var ready []model.Collection
	for c, queuedAt := range e.dirty {
		if minAge > 0 && now.Sub(queuedAt) < minAge {
			continue
		}
		ready = append(ready, c)
		delete(e.dirty, c)
	}
	return ready
}

// periodicPush pushes every collection on the configured interval.
func (e *Engine) periodicPush() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.PushAll(e.ctx)
		}
	}
}

// PushAll pushes all four collections in sequence. A failure on one is
// logged and does not abort the rest; the returned flag reports whether
// every push succeeded.
func (e *Engine) PushAll(ctx context.Context) bool {
	allOK := true
	for _, c := range model.Collections() {
		if err := e.pushCollection(ctx, c); err != nil {
			e.config.Logger.Printf("WARNING: push failed for %s: %v", c, err)
			allOK = false
		}
	}
	return allOK
}

// Flush synchronously pushes every collection still marked dirty.
// Deterministic replacement for waiting out the debounce timer in tests
// and on shutdown.
func (e *Engine) Flush(ctx context.Context) bool {
	allOK := true
	for _, c := range e.takeDirty(0) {
		if err := e.pushCollection(ctx, c); err != nil {
			e.config.Logger.Printf("WARNING: flush push failed for %s: %v", c, err)
			allOK = false
		}
	}
	return allOK
}

// pushCollection upserts a collection's full local state to the remote.
func (e *Engine) pushCollection(ctx context.Context, c model.Collection) error {
	raw := e.store.ReadRaw(c)
	if err := e.remote.Upsert(ctx, c, raw); err != nil {
		return err
	}
	n := countRecords(raw)
	e.config.Logger.Printf("Pushed %s: %d records", c, n)
	if e.config.Notifier != nil {
		e.config.Notifier.CollectionPushed(c, n)
	}
	return nil
}

// countRecords returns the element count of a JSON array, 0 on parse
// failure.
func countRecords(raw json.RawMessage) int {
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0
	}
	return len(probe)
}
