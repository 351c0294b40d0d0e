/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package store holds the permission-gated entity stores. Every mutation goes
// local-first into sqlite, then fans out through a Notifier; deletes go to the
// remote document store first so a half-failed delete never resurrects.
package store

import (
	"errors"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"gorm.io/gorm"
)

// ErrOffline is returned by a Remote when the operation failed only because
// the remote document store is unreachable. The operation has been queued and
// callers may proceed locally.
var ErrOffline = errors.New("remote store offline, operation queued")

// Remote is the sync-engine surface the stores need for remote-first deletes
type Remote interface {
	DeleteRemote(collection string, id uint64) error
}

// Notifier fans a successful local mutation out to whoever needs to hear
// about it (sync engine, sibling instances, the UI)
type Notifier interface {
	NotifyChange(entityType string, item any)
	NotifyDeleted(entityType string)
}

// Actor identifies who is performing a store operation. The zero Actor is
// anonymous (used only by registration and by internal machinery)
type Actor struct {
	ID       uint64
	Username string
	Role     entity.Role
}

// Anonymous reports whether no authenticated account is behind the actor
func (a Actor) Anonymous() bool { return a.ID == 0 }

// Deps bundles what the content stores share. Notify and Remote may be nil
// in tests
type Deps struct {
	DB       *gorm.DB
	Perms    perm.Checker
	Validate *input.Validator
	Audit    *audit.Logger
	Log      nlog.Logger
	Notify   Notifier
	Remote   Remote
}

// nop implementations keep the constructors nil-tolerant

type nopNotifier struct{}

func (nopNotifier) NotifyChange(string, any) {}
func (nopNotifier) NotifyDeleted(string)     {}

type nopRemote struct{}

func (nopRemote) DeleteRemote(string, uint64) error { return nil }

func orNopNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func orNopRemote(r Remote) Remote {
	if r == nil {
		return nopRemote{}
	}
	return r
}
