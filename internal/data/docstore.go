/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package data replicates the panel's collections against a remote document
// store. The store is abstract: anything that can pull, upsert, delete and
// push snapshots can back the panel.
package data

import "context"

// Document is one free-form replicated record. Ids live inside the document
// under the "id" key
type Document map[string]any

// Snapshot is a full-collection publication from the document store.
// FromCache marks data served without reaching the backing store, which may
// be stale
type Snapshot struct {
	Collection string     `json:"collection"`
	Docs       []Document `json:"docs"`
	FromCache  bool       `json:"fromCache"`
}

// DocumentStore is what the engine needs from the remote side. The server is
// authoritative: Pull returns its truth, Upsert merges, Subscribe streams
// whole-collection snapshots after every remote mutation
type DocumentStore interface {

	// Establishes the connection. When successful, error is nil
	Connect(ctx context.Context) error

	// Retrieves the server's copy of a whole collection
	Pull(collection string) ([]Document, error)

	// Merges the document into the server's copy under the given id
	Upsert(collection, id string, doc Document) error

	// Removes the document from the server's copy. Deleting an absent id is fine
	Delete(collection, id string) error

	// Streams collection snapshots until the context given to Connect ends
	Subscribe(collections []string) (<-chan Snapshot, error)

	// Tells whether the last exchange with the server worked
	Online() bool
}

// Action discriminates the request envelopes on the wire
type Action uint8

const (
	ActionPull   Action = iota // Read a whole collection
	ActionUpsert               // Merge one document
	ActionDelete               // Remove one document
)

// Status discriminates the response envelopes
type Status uint8

const (
	StatusOK    Status = iota // Request applied
	StatusError               // Request refused, Error says why
)

// Envelope is the wire format between a panel and the document store. One
// struct for both directions, unused fields stay empty
type Envelope struct {
	ID         string     `json:"id"`
	Action     Action     `json:"action"`
	Collection string     `json:"collection"`
	DocID      string     `json:"docId,omitempty"`
	Doc        Document   `json:"doc,omitempty"`
	Docs       []Document `json:"docs,omitempty"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
}
