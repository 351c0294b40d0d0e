/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package session

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
)

const (
	cookieName     = "panel_session"
	csrfCookieName = "panel_csrf"
	sessionKey     = "state"

	// CSRFHeader is where mutating requests present their token
	CSRFHeader = "X-CSRF-Token"
)

// Session is the authenticated state carried by the cookie.
// LastActivity slides on every validated request
type Session struct {
	UserID       uint64    `json:"userId"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	CSRFToken    string    `json:"csrfToken"`
}

// Manager creates, validates and destroys sessions. Cookies are the source
// of truth, nothing session-scoped lives in process memory
type Manager struct {
	cookies *sessions.CookieStore
	csrf    string // Instance-wide token, regenerated at every start
	timeout time.Duration
	audit   *audit.Logger
	now     func() time.Time
}

// NewManager builds the manager with a fresh CSRF token.
// When successful, error is nil
func NewManager(cfg config.SessionConfig, a *audit.Logger) (*Manager, error) {
	cs := sessions.NewCookieStore([]byte(cfg.Secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(time.Duration(cfg.Timeout).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	token := hex.EncodeToString(securecookie.GenerateRandomKey(32))
	return &Manager{
		cookies: cs,
		csrf:    token,
		timeout: time.Duration(cfg.Timeout),
		audit:   a,
		now:     time.Now,
	}, nil
}

// Create starts a session for the user and sets both the session and the
// CSRF cookie
func (m *Manager) Create(w http.ResponseWriter, r *http.Request, userID uint64, username, role string) (*Session, error) {
	now := m.now()
	s := &Session{
		UserID:       userID,
		Username:     username,
		Role:         role,
		CreatedAt:    now,
		LastActivity: now,
		CSRFToken:    m.csrf,
	}
	if err := m.persist(w, r, s); err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    m.csrf,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})

	if m.audit != nil {
		m.audit.Infof("SESSION_CREATED", username, nil)
	}
	return s, nil
}

// Validate returns the request's session if it exists and has not idled past
// the timeout. A valid session slides its LastActivity forward
func (m *Manager) Validate(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s := m.read(r)
	if s == nil {
		return nil, false
	}
	now := m.now()
	if now.Sub(s.LastActivity) > m.timeout {
		m.Destroy(w, r)
		if m.audit != nil {
			m.audit.Infof("SESSION_EXPIRED", s.Username, nil)
		}
		return nil, false
	}
	s.LastActivity = now
	if err := m.persist(w, r, s); err != nil {
		return nil, false
	}
	return s, true
}

// Destroy ends the request's session
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	cs, _ := m.cookies.Get(r, cookieName)
	cs.Options.MaxAge = -1
	cs.Save(r, w)
	http.SetCookie(w, &http.Cookie{Name: csrfCookieName, Value: "", Path: "/", MaxAge: -1})
}

// ValidateCSRF checks the token header of a mutating request against the
// instance token
func (m *Manager) ValidateCSRF(r *http.Request) bool {
	token := r.Header.Get(CSRFHeader)
	if token == "" {
		return false
	}
	if token == m.csrf {
		return true
	}
	// Accept the cookie copy too, covers an instance restart mid-session
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" && c.Value == token {
		return true
	}
	return false
}

// Token returns the instance CSRF token, handed to the UI after login
func (m *Manager) Token() string { return m.csrf }

func (m *Manager) read(r *http.Request) *Session {
	cs, err := m.cookies.Get(r, cookieName)
	if err != nil {
		return nil
	}
	raw, ok := cs.Values[sessionKey].(string)
	if !ok || raw == "" {
		return nil
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return &s
}

func (m *Manager) persist(w http.ResponseWriter, r *http.Request, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	cs, _ := m.cookies.Get(r, cookieName)
	cs.Values[sessionKey] = string(raw)
	return cs.Save(r, w)
}
