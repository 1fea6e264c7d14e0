package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"privacyreg/api/internal/app"
	"privacyreg/api/internal/audit"
	"privacyreg/api/internal/cache"
	"privacyreg/api/internal/config"
	"privacyreg/api/internal/email"
	"privacyreg/api/internal/export"
	"privacyreg/api/internal/search"
	"privacyreg/api/internal/session"
	"privacyreg/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	if err := os.MkdirAll(cfg.AuditRepoDir, 0o755); err != nil {
		log.Fatalf("failed to create audit dir: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	history := audit.New(cfg.AuditRepoDir)

	sessions, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer sessions.Close()

	var optionCache *cache.Cache
	if c, err := cache.New(cfg.RedisURL, cfg.CacheTTL); err != nil {
		log.Printf("WARNING: option cache disabled: %v", err)
	} else {
		optionCache = c
		defer optionCache.Close()
	}

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var storage *export.ObjectStorage
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		storage, err = export.NewObjectStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Printf("WARNING: object storage disabled: %v", err)
			storage = nil
		} else if err := storage.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: object storage disabled: %v", err)
			storage = nil
		}
	}
	exporter := export.NewService(storage)

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		DPOAddr:  cfg.DPOEmail,
	})

	service := app.New(cfg, dataStore, sessions, history, optionCache, searchService, exporter, mailer)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

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
		log.Printf("Privacy registry API listening on %s", cfg.Addr)
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
