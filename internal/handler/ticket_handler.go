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

type ticketReqFields struct {
	Subject     string `json:"subject"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

type replyReqFields struct {
	Content string `json:"content"`
}

type statusReqFields struct {
	Status string `json:"status"`
}

// TicketHandler manages the support ticket routes
type TicketHandler struct {
	tickets  *store.TicketStore
	sessions *session.Manager
}

func NewTicketHandler(tickets *store.TicketStore, sessions *session.Manager) *TicketHandler {
	return &TicketHandler{tickets: tickets, sessions: sessions}
}

func (h *TicketHandler) withActor(w http.ResponseWriter, r *http.Request, fn func(store.Actor)) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	fn(actorFrom(s))
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.tickets.List(a))
	})
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad ticket id"))
			return
		}
		writeJSON(w, h.tickets.Get(a, id))
	})
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		var req ticketReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.tickets.Create(a, req.Subject, req.Category, req.Priority, req.Description))
	})
}

func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad ticket id"))
			return
		}
		var req ticketReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.tickets.Update(a, id, req.Subject, req.Category, req.Priority, req.Description))
	})
}

func (h *TicketHandler) Reply(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad ticket id"))
			return
		}
		var req replyReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.tickets.Reply(a, id, req.Content))
	})
}

func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad ticket id"))
			return
		}
		var req statusReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.tickets.UpdateStatus(a, id, entity.TicketStatus(req.Status)))
	})
}

func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad ticket id"))
			return
		}
		writeJSON(w, h.tickets.Delete(a, id))
	})
}
