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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	zmq "github.com/pebbe/zmq4"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
)

// zmqStore talks to the reference document store over a REQ socket for
// requests and a SUB socket for snapshot publications
type zmqStore struct {
	cfg config.RemoteConfig
	log nlog.Logger

	mu     sync.Mutex
	req    *zmq.Socket
	ctx    *zmq.Context
	online bool
}

// NewZMQStore builds the client. Nothing connects until Connect
func NewZMQStore(cfg config.RemoteConfig, log nlog.Logger) DocumentStore {
	return &zmqStore{cfg: cfg, log: log}
}

func (z *zmqStore) Connect(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	zctx, err := zmq.NewContext()
	if err != nil {
		return err
	}
	z.ctx = zctx
	if err := z.dialLocked(); err != nil {
		return err
	}

	// A first exchange settles whether the store is actually there
	if _, err := z.exchangeLocked(Envelope{ID: uuid.NewString(), Action: ActionPull, Collection: "users"}); err != nil {
		z.online = false
		return fmt.Errorf("document store not answering: %w", err)
	}
	z.online = true
	return nil
}

func (z *zmqStore) dialLocked() error {
	if z.req != nil {
		z.req.Close()
	}
	req, err := z.ctx.NewSocket(zmq.REQ)
	if err != nil {
		return err
	}
	timeout := time.Duration(z.cfg.RequestTimeout)
	req.SetSndtimeo(timeout)
	req.SetRcvtimeo(timeout)
	req.SetLinger(0)
	if err := req.Connect(z.cfg.Endpoint); err != nil {
		req.Close()
		return err
	}
	z.req = req
	return nil
}

// exchangeLocked runs one request/response round trip. A REQ socket that
// timed out is poisoned and has to be re-dialed before the next use
func (z *zmqStore) exchangeLocked(req Envelope) (*Envelope, error) {
	if z.req == nil {
		if z.ctx == nil {
			return nil, errors.New("not connected")
		}
		if err := z.dialLocked(); err != nil {
			return nil, err
		}
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := z.req.SendBytes(raw, 0); err != nil {
		z.dialLocked()
		return nil, err
	}
	reply, err := z.req.RecvBytes(0)
	if err != nil {
		z.dialLocked()
		return nil, err
	}
	var resp Envelope
	if err := json.Unmarshal(reply, &resp); err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return &resp, errors.New(resp.Error)
	}
	return &resp, nil
}

func (z *zmqStore) exchange(req Envelope) (*Envelope, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	resp, err := z.exchangeLocked(req)
	// A store-side refusal still proves the store is reachable
	z.online = err == nil || resp != nil
	return resp, err
}

func (z *zmqStore) Pull(collection string) ([]Document, error) {
	resp, err := z.exchange(Envelope{ID: uuid.NewString(), Action: ActionPull, Collection: collection})
	if err != nil {
		return nil, err
	}
	return resp.Docs, nil
}

func (z *zmqStore) Upsert(collection, id string, doc Document) error {
	_, err := z.exchange(Envelope{ID: uuid.NewString(), Action: ActionUpsert, Collection: collection, DocID: id, Doc: doc})
	return err
}

func (z *zmqStore) Delete(collection, id string) error {
	_, err := z.exchange(Envelope{ID: uuid.NewString(), Action: ActionDelete, Collection: collection, DocID: id})
	return err
}

// Subscribe opens a SUB socket on the store's publisher and forwards every
// snapshot whose collection was asked for
func (z *zmqStore) Subscribe(collections []string) (<-chan Snapshot, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.ctx == nil {
		return nil, errors.New("not connected")
	}

	sub, err := z.ctx.NewSocket(zmq.SUB)
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		if err := sub.SetSubscribe(c); err != nil {
			sub.Close()
			return nil, err
		}
	}
	if err := sub.Connect(z.cfg.SubEndpoint); err != nil {
		sub.Close()
		return nil, err
	}

	out := make(chan Snapshot, 16)
	go func() {
		defer sub.Close()
		defer close(out)
		for {
			parts, err := sub.RecvMessageBytes(0)
			if err != nil {
				z.log.Logf("Snapshot subscription ended: %v", err)
				return
			}
			if len(parts) < 2 {
				continue
			}
			var snap Snapshot
			if err := json.Unmarshal(parts[1], &snap); err != nil {
				z.log.Logf("Dropping malformed snapshot: %v", err)
				continue
			}
			out <- snap
		}
	}()
	return out, nil
}

func (z *zmqStore) Online() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.online
}
