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

	"cirs/api/internal/app"
	"cirs/api/internal/authpw"
	"cirs/api/internal/cache"
	"cirs/api/internal/config"
	"cirs/api/internal/media"
	"cirs/api/internal/search"
	"cirs/api/internal/store"
	"cirs/api/internal/transcribe"
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

	dataStore := store.NewPostgresStore(db)
	authService := authpw.NewService(dataStore)
	service := app.New(cfg, dataStore, authService)

	if strings.TrimSpace(cfg.TranscribeURL) != "" {
		service.WithTranscriber(transcribe.NewClient(cfg.TranscribeURL, cfg.TranscribeAPIKey, cfg.TranscribeModel))
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		lookups, err := cache.NewLookups(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer lookups.Close()
		service.WithLookupCache(lookups)
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err := media.NewArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		service.WithMedia(archive)
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	service.WithSearch(search.NewService(meiliClient, search.NewPgSearch(db)))

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
		log.Printf("CIRS API listening on %s", cfg.Addr)
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
