/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package store

import (
	"sync"
	"testing"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/security"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
	"gorm.io/gorm"
)

// recNotifier records every fanout call
type recNotifier struct {
	mu      sync.Mutex
	changes []string // entity types in order
	deletes []string
}

func (n *recNotifier) NotifyChange(entityType string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, entityType)
}

func (n *recNotifier) NotifyDeleted(entityType string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deletes = append(n.deletes, entityType)
}

// scriptRemote answers remote deletes with whatever the test scripted
type scriptRemote struct {
	err   error
	calls int
}

func (r *scriptRemote) DeleteRemote(string, uint64) error {
	r.calls++
	return r.err
}

// fixture is everything a store test needs
type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	audit    *audit.Logger
	notifier *recNotifier
	remote   *scriptRemote
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	cfg := config.Default()
	a, err := audit.New(cfg.Security.Audit, storage.NewSQLiteStore(db), nlog.Nop())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	return &fixture{
		db:       db,
		cfg:      cfg,
		audit:    a,
		notifier: &recNotifier{},
		remote:   &scriptRemote{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		DB:       f.db,
		Perms:    perm.NewChecker(perm.DefaultMatrix()),
		Validate: input.NewValidator(f.audit),
		Audit:    f.audit,
		Log:      nlog.Nop(),
		Notify:   f.notifier,
		Remote:   f.remote,
	}
}

func (f *fixture) users(t *testing.T) *UserStore {
	t.Helper()
	st := storage.NewSQLiteStore(f.db)
	pbkdf2 := f.cfg.Security.PBKDF2
	pbkdf2.Iterations = 1000
	// Zero delays keep repeated-failure tests instant
	f.cfg.Security.SmartDelay.BaseDelay = 0
	f.cfg.Security.SmartDelay.MaxDelay = 0
	// Rate limiter and smart delay follow the fixture clock so the tests can
	// walk through windows without sleeping
	rate := security.NewRateLimiter(f.cfg.Security.RateLimit, st)
	rate.SetClock(func() time.Time { return f.now })
	delay := security.NewSmartDelay(f.cfg.Security.SmartDelay, f.cfg.Security.RateLimit.Window, st)
	delay.SetClock(func() time.Time { return f.now })
	s := NewUserStore(UserDeps{
		DB:       f.db,
		Perms:    perm.NewChecker(perm.DefaultMatrix()),
		Hasher:   security.NewHasher(pbkdf2),
		Rate:     rate,
		Delay:    delay,
		Validate: input.NewValidator(f.audit),
		Audit:    f.audit,
		Log:      nlog.Nop(),
		Notify:   f.notifier,
		Remote:   f.remote,
		System:   f.cfg.System,
	})
	s.now = func() time.Time { return f.now }

	// Fresh databases always get the main owner at id 1, exactly like a real
	// instance seeds it on first boot
	cred, err := s.hasher.Hash("ownerpassword")
	if err != nil {
		t.Fatalf("hash owner password: %v", err)
	}
	owner := entity.User{
		ID: entity.MainOwnerID, Name: "Main Owner", Username: "AHMEDTECH",
		PasswordHash: cred.Hash, Salt: cred.Salt, Role: entity.RoleOwner, Created: f.now,
	}
	if err := f.db.Create(&owner).Error; err != nil {
		t.Fatalf("seed main owner: %v", err)
	}
	return s
}

var ownerActor = Actor{ID: entity.MainOwnerID, Username: "AHMEDTECH", Role: entity.RoleOwner}

// seedUser registers an account through the owner and returns its id
func seedUser(t *testing.T, s *UserStore, username string, role entity.Role) uint64 {
	t.Helper()
	res := s.Register(ownerActor, username, username, "longpassword", role)
	if !res.Success {
		t.Fatalf("seed %s: %s", username, res.Message)
	}
	return res.Data.ID
}
