package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restaurant-admin-backend/config"
	"restaurant-admin-backend/internal/api"
	"restaurant-admin-backend/internal/db"
	"restaurant-admin-backend/internal/feed"
	"restaurant-admin-backend/internal/frontdesk"
	"restaurant-admin-backend/internal/metrics"
	"restaurant-admin-backend/internal/notification"
	"restaurant-admin-backend/internal/roster"
	"restaurant-admin-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "tabled ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if !cfg.Push.Enabled() {
		logger.Println("VAPID keys are not configured; order notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs := metrics.NewPromObs(registry)

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Alerts: sound goes to dashboards, notifications go out as web push.
	hub := notification.NewHub(obs)
	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore.DB(), &webpushOptions, obs)
		pool.Start(ctx)
	}
	dispatcher := notification.NewDispatcher(notification.NewWebSurface(hub, pool), obs)
	hub.OnInteract(dispatcher.Interact)

	tables := roster.New(frontdesk.Seeds(cfg.Roster), roster.WithMergeOnInsert(cfg.Roster.MergeOnInsert))
	logger.Printf("roster seeded with %d tables", tables.Len())

	desk := frontdesk.NewService(tables, appStore, dispatcher,
		frontdesk.WithBroadcaster(hub),
		frontdesk.WithMetrics(obs),
	)
	feedClient := feed.NewClient(cfg.Feed, obs)

	deskDone := make(chan struct{})
	go func() {
		desk.Run(ctx, feedClient.Events())
		close(deskDone)
	}()
	go func() {
		if err := feedClient.Run(ctx); err != nil {
			logger.Printf("order feed stopped: %v", err)
		}
	}()

	// Initialize router
	handler := api.NewHandler(appStore, desk, hub, &webpushOptions)
	router := api.NewRouter(handler, cfg.Server, registry)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	cancel()
	feedClient.Close()
	hub.Close()
	<-deskDone
	desk.Wait()
	dispatcher.Wait()

	logger.Println("Server gracefully stopped")
}
