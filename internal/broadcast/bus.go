/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package broadcast keeps sibling panel instances on the same host in step:
// every local mutation is published, every received one is merged, and a
// starting instance asks the others for everything they have.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
)

// Kind of a peer message
type Kind string

const (
	DataChanged Kind = "DATA_CHANGED" // One entity changed, Item carries it
	RequestSync Kind = "REQUEST_SYNC" // Ask every peer to publish FULL_DATA
	FullData    Kind = "FULL_DATA"    // Snapshot carries every collection
)

// Message is one peer publication. Source is the sender's instance id, so
// everyone can drop their own messages coming back around
type Message struct {
	Kind       Kind                        `json:"kind"`
	EntityType string                      `json:"entityType,omitempty"`
	Item       map[string]any              `json:"item,omitempty"`
	Snapshot   map[string][]map[string]any `json:"snapshot,omitempty"`
	Source     string                      `json:"source"`
	Timestamp  time.Time                   `json:"timestamp"`
}

// Merger is the state surface the bus feeds received messages into
type Merger interface {
	UpsertItem(entityType string, doc map[string]any) error
	ApplySnapshot(entityType string, docs []map[string]any) error
	FullSnapshot() (map[string][]map[string]any, error)
}

// Bus publishes on its own PUB endpoint and listens on every peer's
type Bus struct {
	id    string
	cfg   config.BroadcastConfig
	merge Merger
	log   nlog.Logger

	ctx *zmq.Context
	pub *zmq.Socket
}

func NewBus(cfg config.BroadcastConfig, merge Merger, log nlog.Logger) *Bus {
	return &Bus{
		id:    uuid.NewString(),
		cfg:   cfg,
		merge: merge,
		log:   log,
	}
}

// ID is the instance identity messages travel under
func (b *Bus) ID() string { return b.id }

// Start binds the publisher, connects to every peer and asks them for their
// data. When successful, error is nil
func (b *Bus) Start(ctx context.Context) error {
	if !b.cfg.Enabled {
		b.log.Logf("Peer broadcast disabled by configuration")
		return nil
	}

	zctx, err := zmq.NewContext()
	if err != nil {
		return err
	}
	b.ctx = zctx

	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		return err
	}
	if err := pub.Bind(b.cfg.Endpoint); err != nil {
		pub.Close()
		return err
	}
	b.pub = pub

	sub, err := zctx.NewSocket(zmq.SUB)
	if err != nil {
		return err
	}
	sub.SetSubscribe("")
	for _, peer := range b.cfg.Peers {
		if err := sub.Connect(peer); err != nil {
			b.log.Logf("Could not connect to peer %s: %v", peer, err)
		}
	}

	go b.listen(ctx, sub)

	// Late PUB/SUB joins lose the first messages, give the fabric a moment
	// before asking everyone for their state
	go func() {
		time.Sleep(200 * time.Millisecond)
		b.send(Message{Kind: RequestSync})
	}()
	return nil
}

func (b *Bus) listen(ctx context.Context, sub *zmq.Socket) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		raw, err := sub.RecvBytes(0)
		if err != nil {
			b.log.Logf("Peer subscription ended: %v", err)
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			b.log.Logf("Dropping malformed peer message: %v", err)
			continue
		}
		b.handle(msg)
	}
}

// handle merges one received message. Separated from the socket loop so the
// logic is testable without a fabric
func (b *Bus) handle(msg Message) {
	if msg.Source == b.id {
		return
	}
	switch msg.Kind {
	case DataChanged:
		if err := b.merge.UpsertItem(msg.EntityType, msg.Item); err != nil {
			b.log.Logf("Could not merge %s change from %s: %v", msg.EntityType, msg.Source, err)
		}
	case RequestSync:
		b.PublishFull()
	case FullData:
		for entityType, docs := range msg.Snapshot {
			if err := b.merge.ApplySnapshot(entityType, docs); err != nil {
				b.log.Logf("Could not apply %s snapshot from %s: %v", entityType, msg.Source, err)
			}
		}
	default:
		b.log.Logf("Ignoring peer message of unknown kind %q", msg.Kind)
	}
}

// Publish tells the peers one entity changed
func (b *Bus) Publish(entityType string, item map[string]any) {
	b.send(Message{Kind: DataChanged, EntityType: entityType, Item: item})
}

// PublishFull publishes every collection, the answer to a REQUEST_SYNC and
// the follow-up to a local delete
func (b *Bus) PublishFull() {
	snap, err := b.merge.FullSnapshot()
	if err != nil {
		b.log.Logf("Could not build a full snapshot: %v", err)
		return
	}
	b.send(Message{Kind: FullData, Snapshot: snap})
}

// send publishes one message. Failures are logged and swallowed, the peers
// repair themselves on the next full snapshot
func (b *Bus) send(msg Message) {
	if b.pub == nil {
		return
	}
	msg.Source = b.id
	msg.Timestamp = time.Now()
	raw, err := json.Marshal(msg)
	if err != nil {
		b.log.Logf("Could not encode peer message: %v", err)
		return
	}
	if _, err := b.pub.SendBytes(raw, zmq.DONTWAIT); err != nil {
		b.log.Logf("Could not publish %s: %v", msg.Kind, err)
	}
}

// Close releases the publisher socket
func (b *Bus) Close() {
	if b.pub != nil {
		b.pub.Close()
		b.pub = nil
	}
}
