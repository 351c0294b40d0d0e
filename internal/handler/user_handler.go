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

type userReqFields struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserHandler manages the account administration routes
type UserHandler struct {
	users    *store.UserStore
	sessions *session.Manager
}

func NewUserHandler(users *store.UserStore, sessions *session.Manager) *UserHandler {
	return &UserHandler{users: users, sessions: sessions}
}

// withActor validates the session and hands the actor to fn
func (h *UserHandler) withActor(w http.ResponseWriter, r *http.Request, fn func(store.Actor)) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	fn(actorFrom(s))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.users.List(a))
	})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad user id"))
			return
		}
		writeJSON(w, h.users.Get(a, id))
	})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad user id"))
			return
		}
		var req userReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.users.Update(a, id, req.Name, req.Username, entity.Role(req.Role)))
	})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad user id"))
			return
		}
		writeJSON(w, h.users.Delete(a, id))
	})
}

func (h *UserHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad user id"))
			return
		}
		writeJSON(w, h.users.Ban(a, id))
	})
}

func (h *UserHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad user id"))
			return
		}
		writeJSON(w, h.users.Unban(a, id))
	})
}
