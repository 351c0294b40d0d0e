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

type appReqFields struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type telegramReqFields struct {
	Group   string `json:"group"`
	Channel string `json:"channel"`
	Contact string `json:"contact"`
}

// AppHandler covers IPTV applications and the telegram links singleton
type AppHandler struct {
	apps     *store.AppStore
	telegram *store.TelegramStore
	sessions *session.Manager
}

func NewAppHandler(apps *store.AppStore, telegram *store.TelegramStore, sessions *session.Manager) *AppHandler {
	return &AppHandler{apps: apps, telegram: telegram, sessions: sessions}
}

func (h *AppHandler) withActor(w http.ResponseWriter, r *http.Request, fn func(store.Actor)) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	fn(actorFrom(s))
}

func (h *AppHandler) ListApps(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.apps.List(a))
	})
}

func (h *AppHandler) AddApp(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		var req appReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.apps.Add(a, req.Name, req.URL))
	})
}

func (h *AppHandler) EditApp(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad app id"))
			return
		}
		var req appReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.apps.Edit(a, id, req.Name, req.URL))
	})
}

func (h *AppHandler) DeleteApp(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		id, ok := pathID(r)
		if !ok {
			writeJSON(w, entity.Fail[struct{}]("Bad app id"))
			return
		}
		writeJSON(w, h.apps.Delete(a, id))
	})
}

func (h *AppHandler) GetTelegram(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		writeJSON(w, h.telegram.Get(a))
	})
}

func (h *AppHandler) SetTelegram(w http.ResponseWriter, r *http.Request) {
	h.withActor(w, r, func(a store.Actor) {
		var req telegramReqFields
		if !decode(w, r, &req) {
			return
		}
		writeJSON(w, h.telegram.Set(a, req.Group, req.Channel, req.Contact))
	})
}
