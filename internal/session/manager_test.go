/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
)

func testManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	m, err := NewManager(config.Default().Security.Session, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

// login creates a session and returns a request carrying its cookies
func login(t *testing.T, m *Manager) *http.Request {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/login", nil)
	if _, err := m.Create(w, r, 1, "AHMEDTECH", "owner"); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return withCookies(w, httptest.NewRequest("GET", "/api/users", nil))
}

func withCookies(w *httptest.ResponseRecorder, r *http.Request) *http.Request {
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestCreateAndValidate(t *testing.T) {
	m, _ := testManager(t)
	r := login(t, m)
	s, ok := m.Validate(httptest.NewRecorder(), r)
	if !ok {
		t.Fatal("fresh session rejected")
	}
	if s.UserID != 1 || s.Username != "AHMEDTECH" {
		t.Errorf("wrong session payload: %+v", s)
	}
}

func TestValidateWithoutCookie(t *testing.T) {
	m, _ := testManager(t)
	if _, ok := m.Validate(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil)); ok {
		t.Error("request without cookie validated")
	}
}

func TestSessionExpiresAfterIdle(t *testing.T) {
	m, now := testManager(t)
	r := login(t, m)
	*now = now.Add(61 * time.Minute)
	if _, ok := m.Validate(httptest.NewRecorder(), r); ok {
		t.Error("idle session validated past the timeout")
	}
}

func TestActivitySlidesExpiry(t *testing.T) {
	m, now := testManager(t)
	r := login(t, m)

	// Touch the session at minute 50, then again at minute 100: each touch
	// restarts the hour
	*now = now.Add(50 * time.Minute)
	w := httptest.NewRecorder()
	if _, ok := m.Validate(w, r); !ok {
		t.Fatal("session rejected at minute 50")
	}
	r2 := withCookies(w, httptest.NewRequest("GET", "/api/users", nil))
	*now = now.Add(50 * time.Minute)
	if _, ok := m.Validate(httptest.NewRecorder(), r2); !ok {
		t.Error("session rejected although activity slid the expiry")
	}
}

func TestDestroy(t *testing.T) {
	m, _ := testManager(t)
	r := login(t, m)
	w := httptest.NewRecorder()
	m.Destroy(w, r)

	// The reply clears the cookie, a request honoring it carries no session
	r2 := httptest.NewRequest("GET", "/", nil)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			r2.AddCookie(c)
		}
	}
	if _, ok := m.Validate(httptest.NewRecorder(), r2); ok {
		t.Error("destroyed session validated")
	}
}

func TestCSRF(t *testing.T) {
	m, _ := testManager(t)
	r := httptest.NewRequest("POST", "/api/users", nil)
	if m.ValidateCSRF(r) {
		t.Error("request without token accepted")
	}
	r.Header.Set(CSRFHeader, "deadbeef")
	if m.ValidateCSRF(r) {
		t.Error("request with wrong token accepted")
	}
	r.Header.Set(CSRFHeader, m.Token())
	if !m.ValidateCSRF(r) {
		t.Error("request with the instance token rejected")
	}
}

func TestCSRFTokenUniquePerInstance(t *testing.T) {
	a, _ := testManager(t)
	b, _ := testManager(t)
	if a.Token() == b.Token() {
		t.Error("two instances share a CSRF token")
	}
}
