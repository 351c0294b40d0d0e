/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/security"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/store"
)

// memoryStore is a scriptable in-memory DocumentStore
type memoryStore struct {
	mu         sync.Mutex
	collections map[string]map[string]Document
	online      bool
	failNext    error // Returned by the next mutating call, then cleared
	failAlways  error // Returned by every mutating call
	snapshots   chan Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		collections: map[string]map[string]Document{},
		online:      true,
		snapshots:   make(chan Snapshot, 16),
	}
}

func (m *memoryStore) Connect(context.Context) error { return nil }

func (m *memoryStore) Pull(collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		return nil, errors.New("offline")
	}
	var docs []Document
	for _, d := range m.collections[collection] {
		docs = append(docs, d)
	}
	return docs, nil
}

func (m *memoryStore) fail() error {
	if m.failAlways != nil {
		return m.failAlways
	}
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

func (m *memoryStore) Upsert(collection, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		return errors.New("offline")
	}
	if err := m.fail(); err != nil {
		return err
	}
	if m.collections[collection] == nil {
		m.collections[collection] = map[string]Document{}
	}
	m.collections[collection][id] = doc
	return nil
}

func (m *memoryStore) Delete(collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.online {
		return errors.New("offline")
	}
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *memoryStore) Subscribe([]string) (<-chan Snapshot, error) { return m.snapshots, nil }

func (m *memoryStore) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *memoryStore) setOnline(v bool) {
	m.mu.Lock()
	m.online = v
	m.mu.Unlock()
}

func testEngine(t *testing.T) (*Engine, *memoryStore, *store.Registry, storage.Store) {
	t.Helper()
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	blobs := storage.NewSQLiteStore(db)
	cfg := config.Default()
	a, err := audit.New(cfg.Security.Audit, blobs, nlog.Nop())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}

	deps := store.Deps{
		DB:       db,
		Perms:    perm.NewChecker(perm.DefaultMatrix()),
		Validate: input.NewValidator(a),
		Audit:    a,
		Log:      nlog.Nop(),
	}
	pbkdf2 := cfg.Security.PBKDF2
	pbkdf2.Iterations = 1000
	reg := &store.Registry{
		Users: store.NewUserStore(store.UserDeps{
			DB: db, Perms: deps.Perms, Hasher: security.NewHasher(pbkdf2),
			Rate:     security.NewRateLimiter(cfg.Security.RateLimit, blobs),
			Delay:    security.NewSmartDelay(cfg.Security.SmartDelay, cfg.Security.RateLimit.Window, blobs),
			Validate: deps.Validate, Audit: a, Log: nlog.Nop(), System: cfg.System,
		}),
		MACs:     store.NewMACStore(deps),
		Xtreams:  store.NewXtreamStore(deps),
		Tickets:  store.NewTicketStore(deps),
		Apps:     store.NewAppStore(deps),
		Telegram: store.NewTelegramStore(deps),
		Log:      nlog.Nop(),
	}

	docs := newMemoryStore()
	remote := cfg.Remote
	remote.Enabled = true
	return NewEngine(remote, docs, reg, blobs, a, nlog.Nop()), docs, reg, blobs
}

func TestInitialLoadPullsEveryCollection(t *testing.T) {
	e, docs, reg, _ := testEngine(t)
	docs.collections[entity.TypeApps] = map[string]Document{
		"1": {"id": float64(1), "name": "TiviMate", "downloadUrl": "https://example.com/tv.apk"},
	}

	e.initialLoad()

	snap, err := reg.FullSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap[entity.TypeApps]) != 1 {
		t.Fatalf("apps after initial load = %d, want 1", len(snap[entity.TypeApps]))
	}
	if !e.loadComplete() {
		t.Error("initial load not marked complete")
	}
}

func TestEmptyInitialPullKeepsLocalRows(t *testing.T) {
	e, _, reg, _ := testEngine(t)
	err := reg.Users.UpsertItem(entity.User{
		ID: entity.MainOwnerID, Name: "Main Owner", Username: "AHMEDTECH",
		PasswordHash: "aa", Salt: "bb", Role: entity.RoleOwner,
	})
	if err != nil {
		t.Fatalf("seed owner: %v", err)
	}

	// First boot against a brand new remote store: every collection is empty
	e.initialLoad()

	snap, err := reg.FullSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap[entity.TypeUsers]) != 1 {
		t.Fatalf("users after empty initial pull = %d, the seeded owner must survive", len(snap[entity.TypeUsers]))
	}
	if !e.loadComplete() {
		t.Error("initial load not marked complete")
	}

	// A live empty snapshot still applies, a remote deletion of the last
	// record has to land
	e.applySnapshot(Snapshot{Collection: entity.TypeUsers, Docs: []Document{}})
	snap, _ = reg.FullSnapshot()
	if len(snap[entity.TypeUsers]) != 0 {
		t.Error("live empty snapshot ignored")
	}
}

func TestCachedSnapshotSkippedAfterLoad(t *testing.T) {
	e, docs, reg, _ := testEngine(t)
	docs.collections[entity.TypeApps] = map[string]Document{
		"1": {"id": float64(1), "name": "Fresh", "downloadUrl": "https://example.com/a.apk"},
	}
	e.initialLoad()

	// A stale cached snapshot arrives late, it must not clobber the fresh state
	e.applySnapshot(Snapshot{Collection: entity.TypeApps, FromCache: true, Docs: []Document{}})

	snap, _ := reg.FullSnapshot()
	if len(snap[entity.TypeApps]) != 1 {
		t.Error("cached snapshot clobbered fresher state")
	}

	// A live snapshot does apply
	e.applySnapshot(Snapshot{Collection: entity.TypeApps, Docs: []Document{}})
	snap, _ = reg.FullSnapshot()
	if len(snap[entity.TypeApps]) != 0 {
		t.Error("live snapshot ignored")
	}
}

func TestPushItemStripsPassword(t *testing.T) {
	e, docs, _, _ := testEngine(t)
	e.PushItem(entity.TypeUsers, map[string]any{
		"id": 7, "username": "alice", "password": "plaintext", "passwordHash": "abcd",
	})
	doc := docs.collections[entity.TypeUsers]["7"]
	if doc == nil {
		t.Fatal("user not pushed")
	}
	if _, there := doc["password"]; there {
		t.Error("plaintext password travelled")
	}
	if doc["passwordHash"] != "abcd" {
		t.Error("hash stripped, only the plaintext field must go")
	}
}

func TestPushWhileOfflineQueues(t *testing.T) {
	e, docs, _, blobs := testEngine(t)
	docs.setOnline(false)

	e.PushItem(entity.TypeApps, map[string]any{"id": 3, "name": "X", "downloadUrl": "https://x/a.apk"})
	if st := e.Status(); st.PendingOperations != 1 {
		t.Fatalf("pending = %d, want 1", st.PendingOperations)
	}

	// The queue is durable
	var persisted []queuedOp
	if ok, _ := blobs.GetJSON(storage.KeySyncQueue, &persisted); !ok || len(persisted) != 1 {
		t.Fatalf("persisted queue = %v", persisted)
	}

	// Back online, the drain delivers
	docs.setOnline(true)
	e.DrainQueue()
	if docs.collections[entity.TypeApps]["3"] == nil {
		t.Error("queued upsert never delivered")
	}
	if st := e.Status(); st.PendingOperations != 0 {
		t.Errorf("pending after drain = %d", st.PendingOperations)
	}
}

func TestDeleteRemoteOfflineQueuesAndSignals(t *testing.T) {
	e, docs, _, _ := testEngine(t)
	docs.setOnline(false)

	err := e.DeleteRemote(entity.TypeApps, 3)
	if !errors.Is(err, store.ErrOffline) {
		t.Fatalf("offline delete returned %v, want ErrOffline", err)
	}
	if st := e.Status(); st.PendingOperations != 1 {
		t.Errorf("pending = %d, want 1", st.PendingOperations)
	}
}

func TestQueueDropsAfterThreeFailures(t *testing.T) {
	e, docs, _, _ := testEngine(t)
	docs.setOnline(false)
	e.PushItem(entity.TypeApps, map[string]any{"id": 3, "name": "X", "downloadUrl": "https://x/a.apk"})
	docs.setOnline(true)

	docs.failAlways = errors.New("permission denied")
	for i := 0; i < 3; i++ {
		e.DrainQueue()
	}
	if st := e.Status(); st.PendingOperations != 0 {
		t.Errorf("operation still queued after %d failed drains", 3)
	}

	// Dropping favors liveness: nothing ever delivered, nothing retried forever
	docs.failAlways = nil
	e.DrainQueue()
	if docs.collections[entity.TypeApps]["3"] != nil {
		t.Error("dropped operation was delivered anyway")
	}
}

func TestStatus(t *testing.T) {
	e, docs, _, _ := testEngine(t)
	st := e.Status()
	if st.IsInitialized || st.InitialLoadComplete {
		t.Errorf("fresh engine status: %+v", st)
	}
	if !st.SyncEnabled || !st.IsOnline {
		t.Errorf("fresh engine status: %+v", st)
	}
	docs.setOnline(false)
	if e.Status().IsOnline {
		t.Error("status claims online while the store is down")
	}
}
