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
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/docstore"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/nlog"
	"github.com/tech7infopro-dev/AHMEDTECH/internal/storage"
)

func main() {
	configPath := flag.String("config", "docstore.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	panelLog, err := nlog.NewPanelLogger("docstore", cfg.LogDir, cfg.Logging)
	if err != nil {
		log.Fatalf("Could not open the log directory: %v", err)
	}
	go panelLog.Run(ctx)
	defer panelLog.CloseAll()

	mainLog, err := panelLog.RegisterSubsystem("docstore.log")
	if err != nil {
		log.Fatalf("Could not register the main log: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Could not create the data directory: %v", err)
	}
	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Could not open the database: %v", err)
	}

	server := docstore.NewServer(cfg.Remote.Endpoint, cfg.Remote.SubEndpoint, storage.NewSQLiteStore(db), mainLog)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("Document store stopped with an error: %v", err)
	}
	mainLog.Logf("Document store stopped")
}
