package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"psgdocs/api/internal/app"
	"psgdocs/api/internal/archive"
	"psgdocs/api/internal/config"
	"psgdocs/api/internal/email"
	"psgdocs/api/internal/export"
	"psgdocs/api/internal/graph"
	"psgdocs/api/internal/search"
	"psgdocs/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		log.Fatalf("failed to create data dir: %v", err)
	}

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewSQLiteStore(db)

	archiveService, err := archive.New(cfg.ArchiveDir)
	if err != nil {
		log.Fatalf("archive init failed: %v", err)
	}

	var remote *graph.Client
	if strings.TrimSpace(cfg.GraphTenantID) != "" {
		remote = graph.NewClient(graph.Options{
			TenantID:     cfg.GraphTenantID,
			ClientID:     cfg.GraphClientID,
			ClientSecret: cfg.GraphClientSecret,
			SiteURL:      cfg.SiteURL,
			DriveName:    cfg.DriveName,
		})
	} else {
		log.Printf("SharePoint credentials not configured, remote publication disabled")
	}

	exporter := export.NewService(app.ExportStore{Store: dataStore})

	mailService := email.NewService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		From:      cfg.SMTPFrom,
		FromName:  cfg.SMTPFromName,
		EnableTLS: true,
	})

	sqliteSearch := search.NewSQLiteSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, sqliteSearch)
	searchService.ReindexAll(ctx)

	var serviceRemote app.RemoteStore
	if remote != nil {
		serviceRemote = remote
	}
	service := app.NewService(dataStore, serviceRemote, exporter, archiveService, mailService, searchService, app.ServiceOptions{
		BasePath:      cfg.BasePath,
		PendingFolder: cfg.PendingFolder,
	})

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("PSG API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
