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

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/session"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/store"
)

type macReqFields struct {
	URL        string `json:"url"`
	MACAddress string `json:"macAddress"`
	ExpiryDate string `json:"expiryDate"`
}

type xtreamReqFields struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	ExpiryDate string `json:"expiryDate"`
}

// PoolHandler manages the free MAC and free Xtream pools
type PoolHandler struct {
	macs     *store.MACStore
	xtreams  *store.XtreamStore
	sessions *session.Manager
}

func NewPoolHandler(macs *store.MACStore, xtreams *store.XtreamStore, sessions *session.Manager) *PoolHandler {
	return &PoolHandler{macs: macs, xtreams: xtreams, sessions: sessions}
}

func (h *PoolHandler) withActor(w http.ResponseWriter, r *http.Request, fn func(store.Actor)) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	fn(actorFrom(s))
}

func (h *PoolHandler) ListMACs(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.macs.List(a))
	})
}

func (h *PoolHandler) AddMAC(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		var req macReqFields
		if !decode(w, r, &req) {
			return
		}
		expiry, ok := parseExpiry(req.ExpiryDate)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad expiry date"))
			return
		}
		writeJSON(w, h.macs.Add(a, req.URL, req.MACAddress, expiry))
	})
}

func (h *PoolHandler) EditMAC(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad entry id"))
			return
		}
		var req macReqFields
		if !decode(w, r, &req) {
			return
		}
		expiry, ok := parseExpiry(req.ExpiryDate)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad expiry date"))
			return
		}
		writeJSON(w, h.macs.Edit(a, id, req.URL, req.MACAddress, expiry))
	})
}

func (h *PoolHandler) DeleteMAC(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad entry id"))
			return
		}
		writeJSON(w, h.macs.Delete(a, id))
	})
}

func (h *PoolHandler) ListXtreams(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.xtreams.List(a))
	})
}

func (h *PoolHandler) AddXtream(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		var req xtreamReqFields
		if !decode(w, r, &req) {
			return
		}
		expiry, ok := parseExpiry(req.ExpiryDate)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad expiry date"))
			return
		}
		writeJSON(w, h.xtreams.Add(a, req.URL, req.Username, req.Password, expiry))
	})
}

func (h *PoolHandler) EditXtream(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad entry id"))
			return
		}
		var req xtreamReqFields
		if !decode(w, r, &req) {
			return
		}
		expiry, ok := parseExpiry(req.ExpiryDate)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad expiry date"))
			return
		}
		writeJSON(w, h.xtreams.Edit(a, id, req.URL, req.Username, req.Password, expiry))
	})
}

func (h *PoolHandler) DeleteXtream(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad entry id"))
			return
		}
		writeJSON(w, h.xtreams.Delete(a, id))
	})
}
