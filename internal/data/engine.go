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
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/store"
)

// maxRetries is how often a queued operation may fail before it is dropped.
// Dropping favors liveness: the next full snapshot repairs the state anyway
const maxRetries = 3

// queuedOp is one remote operation waiting for the store to come back
type queuedOp struct {
	Op         string   `json:"op"` // "upsert" or "delete"
	Collection string   `json:"collection"`
	DocID      string   `json:"docId"`
	Doc        Document `json:"doc,omitempty"`
	RetryCount int      `json:"retryCount"`
}

// SyncStatus is the engine's self-description for the UI
type SyncStatus struct {
	IsInitialized       bool `json:"isInitialized"`
	IsOnline            bool `json:"isOnline"`
	SyncEnabled         bool `json:"syncEnabled"`
	PendingOperations   int  `json:"pendingOperations"`
	InitialLoadComplete bool `json:"initialLoadComplete"`
}

// Engine keeps the local sqlite state and the remote document store talking.
// Local mutations push out through PushItem and DeleteRemote, remote ones come
// back as snapshots through the subscription. The last writer wins everywhere
type Engine struct {
	docs     DocumentStore
	registry *store.Registry
	blobs    storage.Store
	audit    *audit.Logger
	log      nlog.Logger
	cfg      config.RemoteConfig

	mu          sync.Mutex
	queue       []queuedOp
	initialized bool
	loadDone    bool

	collections []string
}

func NewEngine(cfg config.RemoteConfig, docs DocumentStore, registry *store.Registry, blobs storage.Store, a *audit.Logger, log nlog.Logger) *Engine {
	return &Engine{
		docs:     docs,
		registry: registry,
		blobs:    blobs,
		audit:    a,
		log:      log,
		cfg:      cfg,
		collections: []string{
			entity.TypeUsers, entity.TypeMACs, entity.TypeXtreams,
			entity.TypeTickets, entity.TypeApps, entity.TypeTelegram,
		},
	}
}

// Start connects, restores the persisted queue, pulls every collection once
// and then follows the subscription until the context ends.
// When successful, error is nil
func (e *Engine) Start(ctx context.Context) error {
	if !e.cfg.Enabled {
		e.log.Logf("Remote sync disabled by configuration")
		return nil
	}

	e.mu.Lock()
	if _, err := e.blobs.GetJSON(storage.KeySyncQueue, &e.queue); err != nil {
		e.log.Logf("Could not restore the offline queue: %v", err)
		e.queue = nil
	}
	e.mu.Unlock()

	if err := e.docs.Connect(ctx); err != nil {
		e.log.Logf("Document store unreachable at start: %v", err)
		// Not fatal, the panel works offline and the queue holds the writes
	}

	e.initialLoad()

	sub, err := e.docs.Subscribe(e.collections)
	if err != nil {
		e.log.Logf("Could not subscribe to the document store: %v", err)
	}

	e.mu.Lock()
	e.initialized = true
	e.mu.Unlock()

	go e.run(ctx, sub)
	return nil
}

// initialLoad pulls each collection once, server-authoritative
func (e *Engine) initialLoad() {
	if !e.docs.Online() {
		return
	}
	for _, c := range e.collections {
		docs, err := e.docs.Pull(c)
		if err != nil {
			e.log.Logf("Initial pull of %s failed: %v", c, err)
			return
		}
		// A brand new remote store has nothing to say about this collection.
		// Replacing local rows with the empty set would wipe the seeded
		// owner on first boot. Live subscription snapshots still apply even
		// when empty, a remote deletion of the last record must propagate.
		if len(docs) == 0 {
			continue
		}
		if err := e.registry.ApplySnapshot(c, toMaps(docs)); err != nil {
			e.log.Logf("Could not apply initial %s snapshot: %v", c, err)
			return
		}
	}
	e.mu.Lock()
	e.loadDone = true
	e.mu.Unlock()
	e.log.Logf("Initial load complete, %d collections", len(e.collections))
}

func (e *Engine) run(ctx context.Context, sub <-chan Snapshot) {
	drain := time.NewTicker(time.Duration(e.cfg.SyncInterval))
	defer drain.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-drain.C:
			if !e.loadComplete() {
				e.initialLoad()
			}
			e.DrainQueue()
		case snap, ok := <-sub:
			if !ok {
				sub = nil
				continue
			}
			e.applySnapshot(snap)
		}
	}
}

func (e *Engine) applySnapshot(snap Snapshot) {
	// A cached snapshot after the initial load would clobber fresher server
	// state with whatever the store last had on disk
	if snap.FromCache && e.loadComplete() {
		e.log.Logf("Skipping cached snapshot for %s", snap.Collection)
		return
	}
	if err := e.registry.ApplySnapshot(snap.Collection, toMaps(snap.Docs)); err != nil {
		e.log.Logf("Could not apply %s snapshot: %v", snap.Collection, err)
	}
}

func (e *Engine) loadComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadDone
}

// PushItem replicates one locally mutated record. User documents lose their
// plaintext password field before they travel; a push that cannot reach the
// store queues instead of failing
func (e *Engine) PushItem(entityType string, item any) {
	if !e.cfg.Enabled {
		return
	}
	doc, err := toDocument(item)
	if err != nil {
		e.log.Logf("Could not encode %s item for sync: %v", entityType, err)
		return
	}
	if entityType == entity.TypeUsers {
		delete(doc, "password")
	}
	id := docID(doc)
	if entityType == entity.TypeTelegram {
		id = "1" // The links are a singleton document
	}
	if id == "" {
		e.log.Logf("Refusing to sync a %s document without id", entityType)
		return
	}

	if !e.docs.Online() {
		e.enqueue(queuedOp{Op: "upsert", Collection: entityType, DocID: id, Doc: doc})
		return
	}
	if err := e.docs.Upsert(entityType, id, doc); err != nil {
		e.log.Logf("Upsert of %s/%s failed, queueing: %v", entityType, id, err)
		e.enqueue(queuedOp{Op: "upsert", Collection: entityType, DocID: id, Doc: doc})
	}
}

// DeleteRemote removes the remote copy before a local delete. Offline queues
// the delete and reports ErrOffline so the caller may proceed locally; any
// other failure is returned as is and the caller must abort
func (e *Engine) DeleteRemote(collection string, id uint64) error {
	if !e.cfg.Enabled {
		return nil
	}
	docID := strconv.FormatUint(id, 10)
	if !e.docs.Online() {
		e.enqueue(queuedOp{Op: "delete", Collection: collection, DocID: docID})
		return store.ErrOffline
	}
	if err := e.docs.Delete(collection, docID); err != nil {
		if e.docs.Online() {
			return err
		}
		e.enqueue(queuedOp{Op: "delete", Collection: collection, DocID: docID})
		return store.ErrOffline
	}
	return nil
}

func (e *Engine) enqueue(op queuedOp) {
	e.mu.Lock()
	e.queue = append(e.queue, op)
	e.persistQueueLocked()
	e.mu.Unlock()
}

func (e *Engine) persistQueueLocked() {
	if err := e.blobs.PutJSON(storage.KeySyncQueue, e.queue); err != nil {
		e.log.Logf("Could not persist the offline queue: %v", err)
	}
}

// DrainQueue retries every queued operation. What keeps failing is retried on
// the next drain, and dropped for good after maxRetries attempts
func (e *Engine) DrainQueue() {
	if !e.docs.Online() {
		return
	}
	e.mu.Lock()
	pending := e.queue
	e.queue = nil
	e.mu.Unlock()

	var keep []queuedOp
	for _, op := range pending {
		var err error
		switch op.Op {
		case "upsert":
			err = e.docs.Upsert(op.Collection, op.DocID, op.Doc)
		case "delete":
			err = e.docs.Delete(op.Collection, op.DocID)
		}
		if err == nil {
			continue
		}
		op.RetryCount++
		if op.RetryCount >= maxRetries {
			e.audit.Warningf("SYNC_OP_DROPPED", "", map[string]any{
				"op": op.Op, "collection": op.Collection, "docId": op.DocID,
			})
			e.log.Logf("Dropping %s %s/%s after %d attempts", op.Op, op.Collection, op.DocID, op.RetryCount)
			continue
		}
		keep = append(keep, op)
	}

	e.mu.Lock()
	e.queue = append(keep, e.queue...)
	e.persistQueueLocked()
	e.mu.Unlock()
}

// Status describes the engine for the UI status endpoint
func (e *Engine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SyncStatus{
		IsInitialized:       e.initialized,
		IsOnline:            e.docs.Online(),
		SyncEnabled:         e.cfg.Enabled,
		PendingOperations:   len(e.queue),
		InitialLoadComplete: e.loadDone,
	}
}

func toDocument(item any) (Document, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var doc Document
	err = json.Unmarshal(raw, &doc)
	return doc, err
}

func docID(doc Document) string {
	switch v := doc["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return ""
}

func toMaps(docs []Document) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}
