/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package audit

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
)

// Severity of an audit entry
type Severity uint8

const (
	Info     Severity = iota // Routine operation
	Warning                  // Suspicious but handled
	Error                    // Failed operation
	Critical                 // Security relevant failure
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	}
	return "unknown"
}

// ParseSeverity is the inverse of String
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "info":
		return Info, true
	case "warning":
		return Warning, true
	case "error":
		return Error, true
	case "critical":
		return Critical, true
	}
	return Info, false
}

// Entry is one audited event. Details is free-form, sensitive keys are
// redacted before the entry is buffered
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Severity  Severity       `json:"severity"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"` // Username of who did it, empty for the system itself
	Details   map[string]any `json:"details,omitempty"`
}

// Filter narrows down what Logs returns. Zero values match everything
type Filter struct {
	Severity *Severity
	Action   string
	Actor    string
	Since    time.Time // Inclusive lower bound on the timestamp
	Until    time.Time // Exclusive upper bound on the timestamp
	Limit    int
}

const redacted = "[REDACTED]"

// Logger buffers audit entries in memory and periodically persists them
// encrypted with AES-256-GCM. Without a key (corrupted or missing key blob)
// it degrades to plain base64 so events are never silently dropped
type Logger struct {
	mu        sync.Mutex
	store     storage.Store
	log       nlog.Logger
	gcm       cipher.AEAD
	entries   []Entry
	dirty     bool
	max       int
	sensitive []string
	now       func() time.Time
}

// New loads (or generates) the encryption key, decrypts any persisted log and
// returns a ready logger. When successful, error is nil
func New(cfg config.AuditConfig, store storage.Store, log nlog.Logger) (*Logger, error) {
	l := &Logger{
		store:     store,
		log:       log,
		max:       cfg.MaxEntries,
		sensitive: cfg.SensitiveFields,
		now:       time.Now,
	}

	key, ok, err := store.Get(storage.KeyLogKey)
	if err != nil {
		return nil, err
	}
	if !ok || len(key) != 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		if err := store.Put(storage.KeyLogKey, key); err != nil {
			return nil, err
		}
	}
	block, err := aes.NewCipher(key)
	if err == nil {
		l.gcm, err = cipher.NewGCM(block)
	}
	if err != nil {
		// Key material unusable, carry on unencrypted rather than losing the log
		l.log.Logf("Audit encryption unavailable (%v), falling back to plain encoding", err)
		l.gcm = nil
	}

	if err := l.loadPersisted(); err != nil {
		l.log.Logf("Could not restore persisted audit log: %v", err)
		l.entries = nil
	}
	return l, nil
}

func (l *Logger) loadPersisted() error {
	raw, ok, err := l.store.Get(storage.KeyEncryptedLogs)
	if err != nil || !ok {
		return err
	}
	blob, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return err
	}
	if l.gcm != nil && len(blob) > l.gcm.NonceSize() {
		nonce, ct := blob[:l.gcm.NonceSize()], blob[l.gcm.NonceSize():]
		if pt, err := l.gcm.Open(nil, nonce, ct, nil); err == nil {
			blob = pt
		}
		// Open failing means the blob was written in the plain fallback, decode as is
	}
	return json.Unmarshal(blob, &l.entries)
}

// Record buffers one entry, redacting sensitive detail values. Error and
// critical entries are flushed to the store right away
func (l *Logger) Record(sev Severity, action, actor string, details map[string]any) {
	l.mu.Lock()
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.now(),
		Severity:  sev,
		Action:    action,
		Actor:     actor,
		Details:   l.sanitize(details),
	}
	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.max; over > 0 {
		l.entries = l.entries[over:] // Oldest entries fall off
	}
	l.dirty = true
	l.mu.Unlock()

	l.log.Logf("[%s] %s actor=%s", sev, action, actor)
	if sev >= Error {
		if err := l.Flush(); err != nil {
			l.log.Logf("Immediate audit flush failed: %v", err)
		}
	}
}

func (l *Logger) Infof(action, actor string, details map[string]any)     { l.Record(Info, action, actor, details) }
func (l *Logger) Warningf(action, actor string, details map[string]any)  { l.Record(Warning, action, actor, details) }
func (l *Logger) Errorf(action, actor string, details map[string]any)    { l.Record(Error, action, actor, details) }
func (l *Logger) Criticalf(action, actor string, details map[string]any) { l.Record(Critical, action, actor, details) }

// sanitize deep-copies details replacing the value of any key that contains a
// sensitive substring. Nested maps are walked recursively
func (l *Logger) sanitize(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if l.isSensitive(k) {
			out[k] = redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = l.sanitize(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func (l *Logger) isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range l.sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Flush persists the buffered entries if anything changed since the last flush
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirty {
		return nil
	}

	plain, err := json.Marshal(l.entries)
	if err != nil {
		return err
	}
	blob := plain
	if l.gcm != nil {
		nonce := make([]byte, l.gcm.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return err
		}
		blob = l.gcm.Seal(nonce, nonce, plain, nil)
	}
	encoded := base64.StdEncoding.EncodeToString(blob)
	if err := l.store.Put(storage.KeyEncryptedLogs, []byte(encoded)); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// Logs returns buffered entries matching the filter, newest first
func (l *Logger) Logs(f Filter) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if f.Severity != nil && e.Severity != *f.Severity {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}

// Run flushes on the given interval until the context ends, then one last time
func (l *Logger) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Flush()
			return
		case <-t.C:
			if err := l.Flush(); err != nil {
				l.log.Logf("Periodic audit flush failed: %v", err)
			}
		}
	}
}
