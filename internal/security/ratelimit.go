/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
)

// rateRecord is what gets persisted per identifier
type rateRecord struct {
	Count        int       `json:"count"`
	WindowStart  time.Time `json:"windowStart"`
	BlockedUntil time.Time `json:"blockedUntil"`
}

// RateLimiter counts attempts per identifier inside a fixed window and blocks
// the identifier once the window fills up. Records survive restarts
type RateLimiter struct {
	mu     sync.Mutex
	store  storage.Store
	window time.Duration
	max    int
	block  time.Duration
	now    func() time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, store storage.Store) *RateLimiter {
	return &RateLimiter{
		store:  store,
		window: time.Duration(cfg.Window),
		max:    cfg.MaxAttempts,
		block:  time.Duration(cfg.BlockDuration),
		now:    time.Now,
	}
}

// SetClock swaps the time source, tests drive the window with it
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Check records an attempt for the identifier. The returned bool tells whether
// the attempt may proceed, the string carries the refusal message otherwise
func (r *RateLimiter) Check(id string) (bool, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := storage.RatePrefix + id

	var rec rateRecord
	found, err := r.store.GetJSON(key, &rec)
	if err != nil {
		return false, "", err
	}

	if found && now.Before(rec.BlockedUntil) {
		mins := int(rec.BlockedUntil.Sub(now).Minutes()) + 1
		return false, fmt.Sprintf("Too many attempts. Try again in %d minutes", mins), nil
	}

	// New identifier, or the previous window (or block) is over
	if !found || now.Sub(rec.WindowStart) >= r.window || !rec.BlockedUntil.IsZero() && !now.Before(rec.BlockedUntil) {
		rec = rateRecord{Count: 0, WindowStart: now}
	}

	rec.Count++
	if rec.Count > r.max {
		rec.BlockedUntil = now.Add(r.block)
		if err := r.store.PutJSON(key, rec); err != nil {
			return false, "", err
		}
		mins := int(r.block.Minutes())
		return false, fmt.Sprintf("Too many attempts. Try again in %d minutes", mins), nil
	}

	if err := r.store.PutJSON(key, rec); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// Reset forgets everything known about the identifier, used after a
// successful login
func (r *RateLimiter) Reset(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(storage.RatePrefix + id)
}

// Sweep removes every record whose window and block are both over, so stale
// identifiers do not pile up in storage forever. Returns how many went
func (r *RateLimiter) Sweep() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.store.Keys(storage.RatePrefix)
	if err != nil {
		return 0, err
	}
	now := r.now()
	removed := 0
	for _, key := range keys {
		var rec rateRecord
		found, err := r.store.GetJSON(key, &rec)
		if err != nil {
			return removed, err
		}
		if !found {
			continue
		}
		if now.Sub(rec.WindowStart) >= r.window && !now.Before(rec.BlockedUntil) {
			if err := r.store.Delete(key); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
