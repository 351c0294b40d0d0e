/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package docstore is the reference server-authoritative document store the
// panels replicate against. Collections are plain maps of free-form documents,
// every mutation re-publishes the whole collection.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	zmq "github.com/pebbe/zmq4"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/data"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
)

const persistKey = "docstore_collections"

// Server answers panel requests on a ROUTER socket and publishes collection
// snapshots on a PUB socket. State survives restarts through the blob store
type Server struct {
	reqEndpoint string
	pubEndpoint string
	blobs       storage.Store
	log         nlog.Logger

	mu          sync.Mutex
	collections map[string]map[string]data.Document

	router *zmq.Socket
	pub    *zmq.Socket
}

func NewServer(reqEndpoint, pubEndpoint string, blobs storage.Store, log nlog.Logger) *Server {
	return &Server{
		reqEndpoint: reqEndpoint,
		pubEndpoint: pubEndpoint,
		blobs:       blobs,
		log:         log,
		collections: map[string]map[string]data.Document{},
	}
}

// Run restores persisted state, binds both sockets and serves until the
// context ends. When successful, error is nil
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.blobs.GetJSON(persistKey, &s.collections); err != nil {
		s.log.Logf("Could not restore collections: %v", err)
		s.collections = map[string]map[string]data.Document{}
	}

	zctx, err := zmq.NewContext()
	if err != nil {
		return err
	}
	router, err := zctx.NewSocket(zmq.ROUTER)
	if err != nil {
		return err
	}
	if err := router.Bind(s.reqEndpoint); err != nil {
		return fmt.Errorf("bind router on %s: %w", s.reqEndpoint, err)
	}
	s.router = router

	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		return err
	}
	if err := pub.Bind(s.pubEndpoint); err != nil {
		return fmt.Errorf("bind publisher on %s: %w", s.pubEndpoint, err)
	}
	s.pub = pub

	go func() {
		<-ctx.Done()
		router.Close()
		pub.Close()
	}()

	s.log.Logf("Document store serving on %s, publishing on %s", s.reqEndpoint, s.pubEndpoint)
	for {
		parts, err := router.RecvMessageBytes(0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Logf("Router receive failed: %v", err)
			continue
		}
		if len(parts) < 3 {
			continue
		}
		identity, payload := parts[0], parts[len(parts)-1]

		var req data.Envelope
		var resp data.Envelope
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = data.Envelope{Status: data.StatusError, Error: "malformed request"}
		} else {
			resp = s.Handle(req)
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			s.log.Logf("Could not encode response: %v", err)
			continue
		}
		if _, err := router.SendMessage(identity, "", raw); err != nil {
			s.log.Logf("Could not answer %x: %v", identity, err)
		}
	}
}

// Handle applies one request envelope and returns the response. Exposed so
// the protocol logic is testable without sockets
func (s *Server) Handle(req data.Envelope) data.Envelope {
	resp := data.Envelope{ID: req.ID, Action: req.Action, Collection: req.Collection}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Action {
	case data.ActionPull:
		docs := make([]data.Document, 0, len(s.collections[req.Collection]))
		for _, d := range s.collections[req.Collection] {
			docs = append(docs, d)
		}
		resp.Docs = docs

	case data.ActionUpsert:
		if req.DocID == "" || req.Doc == nil {
			resp.Status = data.StatusError
			resp.Error = "upsert needs a document and an id"
			return resp
		}
		if s.collections[req.Collection] == nil {
			s.collections[req.Collection] = map[string]data.Document{}
		}
		existing := s.collections[req.Collection][req.DocID]
		s.collections[req.Collection][req.DocID] = deepMerge(existing, req.Doc)
		s.afterMutationLocked(req.Collection)

	case data.ActionDelete:
		// Deleting an absent id is fine, out-of-order arrival is tolerated
		delete(s.collections[req.Collection], req.DocID)
		s.afterMutationLocked(req.Collection)

	default:
		resp.Status = data.StatusError
		resp.Error = fmt.Sprintf("unknown action %d", req.Action)
	}
	return resp
}

// afterMutationLocked persists everything and re-publishes the collection
func (s *Server) afterMutationLocked(collection string) {
	if err := s.blobs.PutJSON(persistKey, s.collections); err != nil {
		s.log.Logf("Could not persist collections: %v", err)
	}
	if s.pub == nil {
		return
	}
	docs := make([]data.Document, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		docs = append(docs, d)
	}
	raw, err := json.Marshal(data.Snapshot{Collection: collection, Docs: docs})
	if err != nil {
		s.log.Logf("Could not encode snapshot: %v", err)
		return
	}
	if _, err := s.pub.SendMessage(collection, raw); err != nil {
		s.log.Logf("Could not publish %s snapshot: %v", collection, err)
	}
}

// deepMerge lays the incoming document over the existing one: scalar and
// array fields replace, nested maps merge recursively
func deepMerge(existing, incoming data.Document) data.Document {
	if existing == nil {
		return incoming
	}
	out := make(data.Document, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if prev, ok := out[k].(map[string]any); ok {
			if next, ok := v.(map[string]any); ok {
				out[k] = map[string]any(deepMerge(prev, next))
				continue
			}
		}
		out[k] = v
	}
	return out
}
