package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"psgdocs/api/internal/config"
	"psgdocs/api/internal/graph"
	"psgdocs/api/internal/reconcile"
	"psgdocs/api/internal/runlock"
	"psgdocs/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.GraphTenantID) == "" {
		log.Fatal("SharePoint credentials are required for the monitor")
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

	remote := graph.NewClient(graph.Options{
		TenantID:     cfg.GraphTenantID,
		ClientID:     cfg.GraphClientID,
		ClientSecret: cfg.GraphClientSecret,
		SiteURL:      cfg.SiteURL,
		DriveName:    cfg.DriveName,
	})

	driver := reconcile.NewDriver(remote, reconcile.NewResolver(dataStore), reconcile.DriverConfig{
		BasePath:       cfg.BasePath,
		LedgerFile:     cfg.LedgerFile,
		PendingFolder:  cfg.PendingFolder,
		RejectedFolder: cfg.RejectedFolder,
	})

	var lock reconcile.PassLock
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisLock, err := runlock.NewRedisLock(cfg.RedisURL, "")
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisLock.Close()
		lock = redisLock
		log.Printf("monitor: using redis pass lock")
	}

	runner := reconcile.NewRunner(driver, cfg.PollInterval, lock)
	log.Printf("monitor: polling every %s", cfg.PollInterval)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("monitor stopped: %v", err)
	}
}
