/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"encoding/json"
	"sync"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/broadcast"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/data"
)

// ChangeFanout is the single sink for locally originated mutations. Every
// store gets one, and it forwards the change to the remote document server
// and to the other panel instances.
//
// Stores are built before the sync engine and the peer bus (they depend on
// the stores), so the fanout starts empty and gets its targets via Bind.
type ChangeFanout struct {
	mu     sync.RWMutex
	engine *data.Engine
	bus    *broadcast.Bus

	// OnEntityChanged, when not nil, runs after every fanout. Used to push
	// refreshes to connected clients.
	OnEntityChanged func(entityType string)
}

func NewChangeFanout() *ChangeFanout {
	return &ChangeFanout{}
}

// Bind attaches the sync engine and the peer bus once they exist
func (f *ChangeFanout) Bind(engine *data.Engine, bus *broadcast.Bus) {
	f.mu.Lock()
	f.engine = engine
	f.bus = bus
	f.mu.Unlock()
}

func (f *ChangeFanout) targets() (*data.Engine, *broadcast.Bus) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine, f.bus
}

func (f *ChangeFanout) NotifyChange(entityType string, item any) {
	engine, bus := f.targets()
	if engine != nil {
		engine.PushItem(entityType, item)
	}
	if bus != nil {
		if doc, err := toDocMap(item); err == nil {
			bus.Publish(entityType, doc)
		}
	}
	if f.OnEntityChanged != nil {
		f.OnEntityChanged(entityType)
	}
}

// NotifyDeleted keeps the peers consistent after a removal. There is no
// per-item delete message, peers take the full snapshot instead.
func (f *ChangeFanout) NotifyDeleted(entityType string) {
	_, bus := f.targets()
	if bus != nil {
		bus.PublishFull()
	}
	if f.OnEntityChanged != nil {
		f.OnEntityChanged(entityType)
	}
}

// DeleteRemote forwards a remote-first delete to the sync engine. Before
// Bind there is no engine and the delete is treated as already done.
func (f *ChangeFanout) DeleteRemote(collection string, id uint64) error {
	engine, _ := f.targets()
	if engine == nil {
		return nil
	}
	return engine.DeleteRemote(collection, id)
}

func toDocMap(item any) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
