/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/data"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/session"
)

// SyncHandler exposes the replication status and the audit trail
type SyncHandler struct {
	engine   *data.Engine
	logs     *audit.Logger
	perms    perm.Checker
	sessions *session.Manager
}

func NewSyncHandler(engine *data.Engine, logs *audit.Logger, perms perm.Checker, sessions *session.Manager) *SyncHandler {
	return &SyncHandler{engine: engine, logs: logs, perms: perms, sessions: sessions}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	if !h.perms.Can(entity.Role(s.Role), perm.RemoteSync) {
		writeJSON(w, entity.Fail[struct{}]("Permission denied"))
		return
	}
	writeJSON(w, entity.Ok(h.engine.Status()))
}

// Logs returns the audit trail, newest first. Query parameters: severity,
// action, actor, since / until (RFC3339) and limit.
func (h *SyncHandler) Logs(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	if !h.perms.Can(entity.Role(s.Role), perm.ViewLogs) {
		writeJSON(w, entity.Fail[struct{}]("Permission denied"))
		return
	}

	f := audit.Filter{
		Action: r.URL.Query().Get("action"),
		Actor:  r.URL.Query().Get("actor"),
	}
	if raw := r.URL.Query().Get("severity"); raw != "" {
		if sev, ok := audit.ParseSeverity(raw); ok {
			f.Severity = &sev
		}
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.Since = t
		}
	}
	if raw := r.URL.Query().Get("until"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			f.Until = t
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.Limit = n
		}
	}
	writeJSON(w, entity.Ok(h.logs.Logs(f)))
}
