/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/audit"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/broadcast"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/data"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/handler"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/input"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/perm"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/security"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/session"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/store"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "panel.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	panelLog, err := nlog.NewPanelLogger(cfg.Instance, cfg.LogDir, cfg.Logging)
	if err != nil {
		log.Fatalf("Could not open the log directory: %v", err)
	}
	go panelLog.Run(ctx)
	defer panelLog.CloseAll()

	mainLog, err := panelLog.RegisterSubsystem("panel.log")
	if err != nil {
		log.Fatalf("Could not register the main log: %v", err)
	}
	syncLog, _ := panelLog.RegisterSubsystem("sync.log")
	busLog, _ := panelLog.RegisterSubsystem("broadcast.log")
	httpLog, _ := panelLog.RegisterSubsystem("http.log")
	storeLog, _ := panelLog.RegisterSubsystem("store.log")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Could not create the data directory: %v", err)
	}
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Could not open the database: %v", err)
	}
	blobs := storage.NewSQLiteStore(db)

	auditLog, err := audit.New(cfg.Security.Audit, blobs, mainLog)
	if err != nil {
		log.Fatalf("Could not open the audit log: %v", err)
	}
	go auditLog.Run(ctx, time.Duration(cfg.Security.Audit.FlushInterval))

	sessions, err := session.NewManager(cfg.Security.Session, auditLog)
	if err != nil {
		log.Fatalf("Could not build the session manager: %v", err)
	}

	perms := perm.NewChecker(perm.DefaultMatrix())
	validate := input.NewValidator(auditLog)
	hasher := security.NewHasher(cfg.Security.PBKDF2)

	// The stores fan their changes out through this. The sync engine and the
	// peer bus do not exist yet, they are bound right after
	fanout := handler.NewChangeFanout()

	deps := store.Deps{
		DB: db, Perms: perms, Validate: validate, Audit: auditLog,
		Log: storeLog, Notify: fanout, Remote: fanout,
	}
	rate := security.NewRateLimiter(cfg.Security.RateLimit, blobs)
	users := store.NewUserStore(store.UserDeps{
		DB: db, Perms: perms, Hasher: hasher,
		Rate:     rate,
		Delay:    security.NewSmartDelay(cfg.Security.SmartDelay, cfg.Security.RateLimit.Window, blobs),
		Validate: validate, Audit: auditLog, Log: storeLog, Notify: fanout,
		Remote: fanout, System: cfg.System,
	})
	macs := store.NewMACStore(deps)
	xtreams := store.NewXtreamStore(deps)
	tickets := store.NewTicketStore(deps)
	apps := store.NewAppStore(deps)
	telegram := store.NewTelegramStore(deps)

	registry := &store.Registry{
		Users: users, MACs: macs, Xtreams: xtreams,
		Tickets: tickets, Apps: apps, Telegram: telegram,
		Log: storeLog,
	}

	if err := seedMainOwner(db, cfg, hasher, mainLog); err != nil {
		log.Fatalf("Could not seed the main owner: %v", err)
	}

	engine := data.NewEngine(cfg.Remote, data.NewZMQStore(cfg.Remote, syncLog), registry, blobs, auditLog, syncLog)
	if err := engine.Start(ctx); err != nil {
		mainLog.Logf("Sync engine did not start: %v", err)
	}
	bus := broadcast.NewBus(cfg.Broadcast, registry, busLog)
	if err := bus.Start(ctx); err != nil {
		mainLog.Logf("Peer bus did not start: %v", err)
	}
	defer bus.Close()

	fanout.Bind(engine, bus)

	// Periodic maintenance
	jobs := cron.New()
	sweepSpec := "@every " + time.Duration(cfg.System.ExpirySweepInterval).String()
	jobs.AddFunc(sweepSpec, func() {
		if n, err := macs.SweepExpired(); err != nil {
			mainLog.Logf("MAC expiry sweep failed: %v", err)
		} else if n > 0 {
			mainLog.Logf("Expiry sweep removed %d MAC entries", n)
		}
		if n, err := xtreams.SweepExpired(); err != nil {
			mainLog.Logf("Xtream expiry sweep failed: %v", err)
		} else if n > 0 {
			mainLog.Logf("Expiry sweep removed %d Xtream entries", n)
		}
		if n, err := rate.Sweep(); err != nil {
			mainLog.Logf("Rate limiter sweep failed: %v", err)
		} else if n > 0 {
			mainLog.Logf("Rate limiter sweep dropped %d stale records", n)
		}
	})
	jobs.AddFunc("@every 1m", engine.DrainQueue)
	jobs.Start()
	defer jobs.Stop()

	handlers := handler.Handlers{
		Auth:   handler.NewAuthHandler(users, sessions),
		Users:  handler.NewUserHandler(users, sessions),
		Pools:  handler.NewPoolHandler(macs, xtreams, sessions),
		Ticket: handler.NewTicketHandler(tickets, sessions),
		Apps:   handler.NewAppHandler(apps, telegram, sessions),
		Sync:   handler.NewSyncHandler(engine, auditLog, perms, sessions),
	}
	server := handler.NewServer(cfg.HTTPAddr, handlers, sessions, httpLog)

	if err := server.Run(ctx); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}

	auditLog.Flush()
	mainLog.Logf("Panel instance %s stopped", cfg.Instance)
}

// seedMainOwner creates the protected owner account on a fresh database.
// Without a configured password a random one is generated and logged once
func seedMainOwner(db *gorm.DB, cfg *config.Config, hasher *security.Hasher, log nlog.Logger) error {
	var count int64
	if err := db.Model(&entity.User{}).Where("id = ?", entity.MainOwnerID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.Owner.Password
	if password == "" {
		raw := make([]byte, 12)
		if _, err := rand.Read(raw); err != nil {
			return err
		}
		password = hex.EncodeToString(raw)
		log.Logf("Generated owner password: %s (change it after the first login)", password)
	}
	cred, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	owner := entity.User{
		ID:           entity.MainOwnerID,
		Name:         cfg.Owner.Name,
		Username:     cfg.Owner.Username,
		PasswordHash: cred.Hash,
		Salt:         cred.Salt,
		Role:         entity.RoleOwner,
		Created:      time.Now(),
	}
	if err := db.Create(&owner).Error; err != nil {
		return err
	}
	log.Logf("Seeded the main owner account %q", cfg.Owner.Username)
	return nil
}
