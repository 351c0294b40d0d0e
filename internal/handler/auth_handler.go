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

type loginReqFields struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerReqFields struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type passwordReqFields struct {
	UserID      uint64 `json:"userId"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// loginPayload is the login response: the account plus the CSRF token the UI
// must present on every mutating request
type loginPayload struct {
	User entity.SafeUser `json:"user"`
	CSRF string          `json:"csrfToken"`
}

// AuthHandler manages login, registration, logout and password changes
type AuthHandler struct {
	users    *store.UserStore
	sessions *session.Manager
}

func NewAuthHandler(users *store.UserStore, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

// Login authenticates and opens a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReqFields
	if !decode(w, r, &req) {
		return
	}

	res := h.users.Login(r.Context(), req.Username, req.Password)
	if !res.Success {
		writeJSON(w, entity.Fail[struct{}](res.Message))
		return
	}
	if _, err := h.sessions.Create(w, r, res.Data.ID, res.Data.Username, string(res.Data.Role)); err != nil {
		writeJSON(w, entity.Fail[struct{}]("Could not open a session"))
		return
	}
	writeJSON(w, entity.Ok(loginPayload{User: res.Data, CSRF: h.sessions.Token()}))
}

// Register creates an account. Without a session it is an anonymous
// registration and the role is forced to user
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReqFields
	if !decode(w, r, &req) {
		return
	}

	actor := store.Actor{}
	if s, ok := h.sessions.Validate(w, r); ok {
		actor = actorFrom(s)
	}
	writeJSON(w, h.users.Register(actor, req.Name, req.Username, req.Password, entity.Role(req.Role)))
}

// Logout ends the session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.sessions.Validate(w, r); ok {
		h.users.Logout(actorFrom(s))
	}
	h.sessions.Destroy(w, r)
	writeJSON(w, entity.Ok(struct{}{}))
}

// ChangePassword changes the actor's own password, or someone else's when
// the body names a different user id
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Validate(w, r)
	if !ok {
		writeJSON(w, entity.Fail[struct{}]("Not logged in"))
		return
	}
	var req passwordReqFields
	if !decode(w, r, &req) {
		return
	}
	target := req.UserID
	if target == 0 {
		target = s.UserID
	}
	writeJSON(w, h.users.ChangePassword(actorFrom(s), target, req.OldPassword, req.NewPassword))
}
