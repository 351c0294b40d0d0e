/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/session"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth   *AuthHandler
	Users  *UserHandler
	Pools  *PoolHandler
	Ticket *TicketHandler
	Apps   *AppHandler
	Sync   *SyncHandler
}

// Server is the HTTP front of a panel instance. It owns the router and the
// graceful shutdown dance.
type Server struct {
	addr     string
	sessions *session.Manager
	log      nlog.Logger

	server *http.Server

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}
}

func NewServer(addr string, h Handlers, sessions *session.Manager, log nlog.Logger) *Server {
	s := &Server{
		addr:                addr,
		sessions:            sessions,
		log:                 log,
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.csrfMiddleware)

	// Authentication routes
	api.HandleFunc("/register", h.Auth.Register).Methods("POST")
	api.HandleFunc("/login", h.Auth.Login).Methods("POST")
	api.HandleFunc("/logout", h.Auth.Logout).Methods("POST")
	api.HandleFunc("/password", h.Auth.ChangePassword).Methods("POST")

	// User management
	api.HandleFunc("/users", h.Users.List).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}", h.Users.Get).Methods("GET")
	api.HandleFunc("/users/{id:[0-9]+}", h.Users.Update).Methods("PUT")
	api.HandleFunc("/users/{id:[0-9]+}", h.Users.Delete).Methods("DELETE")
	api.HandleFunc("/users/{id:[0-9]+}/ban", h.Users.Ban).Methods("POST")
	api.HandleFunc("/users/{id:[0-9]+}/unban", h.Users.Unban).Methods("POST")

	// MAC pool
	api.HandleFunc("/macs", h.Pools.ListMACs).Methods("GET")
	api.HandleFunc("/macs", h.Pools.AddMAC).Methods("POST")
	api.HandleFunc("/macs/{id:[0-9]+}", h.Pools.EditMAC).Methods("PUT")
	api.HandleFunc("/macs/{id:[0-9]+}", h.Pools.DeleteMAC).Methods("DELETE")

	// Xtream codes pool
	api.HandleFunc("/xtreams", h.Pools.ListXtreams).Methods("GET")
	api.HandleFunc("/xtreams", h.Pools.AddXtream).Methods("POST")
	api.HandleFunc("/xtreams/{id:[0-9]+}", h.Pools.EditXtream).Methods("PUT")
	api.HandleFunc("/xtreams/{id:[0-9]+}", h.Pools.DeleteXtream).Methods("DELETE")

	// Support tickets
	api.HandleFunc("/tickets", h.Ticket.List).Methods("GET")
	api.HandleFunc("/tickets", h.Ticket.Create).Methods("POST")
	api.HandleFunc("/tickets/{id:[0-9]+}", h.Ticket.Get).Methods("GET")
	api.HandleFunc("/tickets/{id:[0-9]+}", h.Ticket.Update).Methods("PUT")
	api.HandleFunc("/tickets/{id:[0-9]+}", h.Ticket.Delete).Methods("DELETE")
	api.HandleFunc("/tickets/{id:[0-9]+}/reply", h.Ticket.Reply).Methods("POST")
	api.HandleFunc("/tickets/{id:[0-9]+}/status", h.Ticket.UpdateStatus).Methods("PUT")

	// IPTV applications and telegram links
	api.HandleFunc("/apps", h.Apps.ListApps).Methods("GET")
	api.HandleFunc("/apps", h.Apps.AddApp).Methods("POST")
	api.HandleFunc("/apps/{id:[0-9]+}", h.Apps.EditApp).Methods("PUT")
	api.HandleFunc("/apps/{id:[0-9]+}", h.Apps.DeleteApp).Methods("DELETE")
	api.HandleFunc("/telegram", h.Apps.GetTelegram).Methods("GET")
	api.HandleFunc("/telegram", h.Apps.SetTelegram).Methods("PUT")

	// Operational surface
	api.HandleFunc("/sync/status", h.Sync.Status).Methods("GET")
	api.HandleFunc("/logs", h.Sync.Logs).Methods("GET")

	s.server = &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return s
}

// csrfMiddleware refuses mutating requests that do not carry the instance
// token. Login and register are exempt, the client has no token before them.
func (s *Server) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Path == "/api/login" || r.URL.Path == "/api/register" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.sessions.ValidateCSRF(r) {
			writeJSON(w, entity.Fail[struct{}]("Invalid CSRF token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until the context is cancelled or Stop is called. It only
// returns once the listener is down.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.log.Logf("Received stop signal. Shutting down...")
		case <-s.stopFromOutsideChan:
			s.log.Logf("Server was asked to stop. Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Logf("Error during shutdown... %v", err)
		}
		close(s.doneFromInsideChan)
	}()

	s.log.Logf("Http server starting on %s", s.addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		s.log.Logf("FATAL: HTTP Server error{%v}", err)
		return err
	}
	<-s.doneFromInsideChan
	return nil
}

func (s *Server) Stop() {
	close(s.stopFromOutsideChan)
	<-s.doneFromInsideChan
}

// Handler exposes the routing tree, tests drive it directly
func (s *Server) Handler() http.Handler { return s.server.Handler }
