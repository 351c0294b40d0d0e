/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package security

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
)

// delayRecord tracks the consecutive failures of one identifier
type delayRecord struct {
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
}

// SmartDelay slows down repeated failures exponentially. Each identifier pays
// base * factor^(failures-1) before its operation runs, capped and jittered so
// a caller cannot time its way around it. State survives restarts
type SmartDelay struct {
	mu     sync.Mutex
	store  storage.Store
	base   time.Duration
	max    time.Duration
	factor float64
	jitter float64
	window time.Duration
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

func NewSmartDelay(cfg config.SmartDelayConfig, window config.Duration, store storage.Store) *SmartDelay {
	return &SmartDelay{
		store:  store,
		base:   time.Duration(cfg.BaseDelay),
		max:    time.Duration(cfg.MaxDelay),
		factor: cfg.Factor,
		jitter: cfg.JitterPercent,
		window: time.Duration(window),
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// SetClock swaps the time source, tests drive the failure window with it
func (s *SmartDelay) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay computes the current delay for the identifier without sleeping
func (s *SmartDelay) Delay(id string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return 0, err
	}
	rec, ok := recs[id]
	if !ok || s.expired(rec) {
		return 0, nil
	}
	return s.delayFor(rec.Count), nil
}

func (s *SmartDelay) delayFor(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	d := float64(s.base) * math.Pow(s.factor, float64(failures-1))
	if d > float64(s.max) {
		d = float64(s.max)
	}
	// +-jitter percent around the computed value
	d *= 1 + s.jitter*(2*rand.Float64()-1)
	return time.Duration(d)
}

func (s *SmartDelay) expired(rec delayRecord) bool {
	return s.now().Sub(rec.FirstSeen) >= s.window
}

// ExecuteWithDelay sleeps the identifier's current delay, runs op, and records
// the outcome: failures grow the delay, a success forgets the identifier.
// op returns whether it succeeded plus its own error, which is passed through
func (s *SmartDelay) ExecuteWithDelay(ctx context.Context, id string, op func() (bool, error)) (bool, error) {
	d, err := s.Delay(id)
	if err != nil {
		return false, err
	}
	if err := s.sleep(ctx, d); err != nil {
		return false, err
	}

	ok, opErr := op()
	if ok {
		if err := s.Reset(id); err != nil {
			return ok, err
		}
	} else {
		if err := s.RecordAttempt(id); err != nil {
			return ok, err
		}
	}
	return ok, opErr
}

// RecordAttempt counts one more failure for the identifier
func (s *SmartDelay) RecordAttempt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	rec, ok := recs[id]
	if !ok || s.expired(rec) {
		rec = delayRecord{FirstSeen: s.now()}
	}
	rec.Count++
	recs[id] = rec
	return s.store.PutJSON(storage.KeySmartDelay, recs)
}

// Reset forgets the identifier's failures
func (s *SmartDelay) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := recs[id]; !ok {
		return nil
	}
	delete(recs, id)
	return s.store.PutJSON(storage.KeySmartDelay, recs)
}

func (s *SmartDelay) load() (map[string]delayRecord, error) {
	recs := map[string]delayRecord{}
	if _, err := s.store.GetJSON(storage.KeySmartDelay, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
