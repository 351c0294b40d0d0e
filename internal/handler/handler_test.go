/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/data"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/security"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/session"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/store"
)

// harness runs the whole HTTP surface against an in-memory database
type harness struct {
	srv    *httptest.Server
	client *http.Client
	csrf   string // Token handed out by the last login
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Security.PBKDF2.Iterations = 1000
	cfg.Security.SmartDelay.BaseDelay = 0
	cfg.Security.SmartDelay.MaxDelay = 0
	cfg.Remote.Enabled = false
	cfg.Broadcast.Enabled = false

	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	blobs := storage.NewSQLiteStore(db)

	a, err := audit.New(cfg.Security.Audit, blobs, nlog.Nop())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	sessions, err := session.NewManager(cfg.Security.Session, a)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}

	perms := perm.NewChecker(perm.DefaultMatrix())
	validate := input.NewValidator(a)
	hasher := security.NewHasher(cfg.Security.PBKDF2)
	fanout := NewChangeFanout()

	deps := store.Deps{
		DB: db, Perms: perms, Validate: validate, Audit: a,
		Log: nlog.Nop(), Notify: fanout,
	}
	users := store.NewUserStore(store.UserDeps{
		DB: db, Perms: perms, Hasher: hasher,
		Rate:     security.NewRateLimiter(cfg.Security.RateLimit, blobs),
		Delay:    security.NewSmartDelay(cfg.Security.SmartDelay, cfg.Security.RateLimit.Window, blobs),
		Validate: validate, Audit: a, Log: nlog.Nop(), Notify: fanout,
		System: cfg.System,
	})
	macs := store.NewMACStore(deps)
	xtreams := store.NewXtreamStore(deps)
	tickets := store.NewTicketStore(deps)
	apps := store.NewAppStore(deps)
	telegram := store.NewTelegramStore(deps)

	registry := &store.Registry{
		Users: users, MACs: macs, Xtreams: xtreams,
		Tickets: tickets, Apps: apps, Telegram: telegram,
		Log: nlog.Nop(),
	}
	engine := data.NewEngine(cfg.Remote, data.NewZMQStore(cfg.Remote, nlog.Nop()), registry, blobs, a, nlog.Nop())

	// Fresh databases get the main owner at id 1
	cred, err := hasher.Hash("ownerpassword")
	if err != nil {
		t.Fatalf("hash owner password: %v", err)
	}
	owner := entity.User{
		ID: entity.MainOwnerID, Name: "Main Owner", Username: "AHMEDTECH",
		PasswordHash: cred.Hash, Salt: cred.Salt, Role: entity.RoleOwner,
	}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("seed main owner: %v", err)
	}

	h := Handlers{
		Auth:   NewAuthHandler(users, sessions),
		Users:  NewUserHandler(users, sessions),
		Pools:  NewPoolHandler(macs, xtreams, sessions),
		Ticket: NewTicketHandler(tickets, sessions),
		Apps:   NewAppHandler(apps, telegram, sessions),
		Sync:   NewSyncHandler(engine, a, perms, sessions),
	}
	server := NewServer(":0", h, sessions, nlog.Nop())

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &harness{srv: srv, client: &http.Client{Jar: jar}}
}

// post sends body as json, with the CSRF token when the harness has one,
// and decodes the envelope
func (h *harness) post(t *testing.T, method, path string, body any) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.csrf != "" {
		req.Header.Set(session.CSRFHeader, h.csrf)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (h *harness) get(t *testing.T, path string) map[string]any {
	t.Helper()
	return h.post(t, http.MethodGet, path, nil)
}

func (h *harness) login(t *testing.T, username, password string) map[string]any {
	t.Helper()
	out := h.post(t, http.MethodPost, "/api/login", map[string]string{
		"username": username, "password": password,
	})
	if data, ok := out["data"].(map[string]any); ok {
		if token, ok := data["csrfToken"].(string); ok {
			h.csrf = token
		}
	}
	return out
}

func success(out map[string]any) bool {
	ok, _ := out["success"].(bool)
	return ok
}

func TestLoginHandsOutCSRFToken(t *testing.T) {
	h := newHarness(t)

	out := h.login(t, "AHMEDTECH", "ownerpassword")
	if !success(out) {
		t.Fatalf("login failed: %v", out["message"])
	}
	if h.csrf == "" {
		t.Fatal("expected a csrf token in the login payload")
	}
}

func TestWrongPasswordIsRejected(t *testing.T) {
	h := newHarness(t)

	out := h.login(t, "AHMEDTECH", "not-the-password")
	if success(out) {
		t.Fatal("expected the login to fail")
	}
}

func TestMutationsNeedTheCSRFToken(t *testing.T) {
	h := newHarness(t)
	h.login(t, "AHMEDTECH", "ownerpassword")

	body := map[string]string{
		"url": "http://portal.example.com", "macAddress": "00:1A:79:AA:BB:CC",
		"expiryDate": "2027-01-01",
	}

	// Without the token the middleware refuses the request outright
	token := h.csrf
	h.csrf = ""
	out := h.post(t, http.MethodPost, "/api/macs", body)
	if success(out) {
		t.Fatal("expected the request to be refused without a token")
	}

	h.csrf = token
	out = h.post(t, http.MethodPost, "/api/macs", body)
	if !success(out) {
		t.Fatalf("add mac with token: %v", out["message"])
	}
}

func TestEndpointsNeedASession(t *testing.T) {
	h := newHarness(t)

	out := h.get(t, "/api/users")
	if success(out) {
		t.Fatal("expected the listing to be refused without a session")
	}
}

func TestTicketFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.login(t, "AHMEDTECH", "ownerpassword")

	out := h.post(t, http.MethodPost, "/api/tickets", map[string]string{
		"subject": "Stream keeps buffering", "category": "technical",
		"priority": "high", "description": "Freezes every evening around nine",
	})
	if !success(out) {
		t.Fatalf("create ticket: %v", out["message"])
	}
	ticket := out["data"].(map[string]any)
	id := int(ticket["id"].(float64))

	out = h.post(t, http.MethodPost, "/api/tickets/"+strconv.Itoa(id)+"/reply", map[string]string{
		"content": "Please send the portal url",
	})
	if !success(out) {
		t.Fatalf("reply: %v", out["message"])
	}

	out = h.post(t, http.MethodPut, "/api/tickets/"+strconv.Itoa(id)+"/status", map[string]string{
		"status": "closed",
	})
	if !success(out) {
		t.Fatalf("close: %v", out["message"])
	}
}

func TestLogsNeedTheViewPermission(t *testing.T) {
	h := newHarness(t)
	h.login(t, "AHMEDTECH", "ownerpassword")

	// The owner registers a plain user, who then logs in on a fresh client
	out := h.post(t, http.MethodPost, "/api/register", map[string]string{
		"name": "Plain User", "username": "plainuser",
		"password": "longenoughpassword", "role": "user",
	})
	if !success(out) {
		t.Fatalf("register: %v", out["message"])
	}

	other := &harness{srv: h.srv, client: h.freshClient(t)}
	if out := other.login(t, "plainuser", "longenoughpassword"); !success(out) {
		t.Fatalf("user login: %v", out["message"])
	}
	if out := other.get(t, "/api/logs"); success(out) {
		t.Fatal("expected the logs to be refused for a plain user")
	}

	if out := h.get(t, "/api/logs"); !success(out) {
		t.Fatalf("owner logs: %v", out["message"])
	}
}

func (h *harness) freshClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}
