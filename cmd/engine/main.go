package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradewinds-engine/internal/cache"
	"tradewinds-engine/internal/config"
	"tradewinds-engine/internal/economy"
	"tradewinds-engine/internal/events"
	"tradewinds-engine/internal/handler"
	"tradewinds-engine/internal/request"
	"tradewinds-engine/internal/router"
	"tradewinds-engine/internal/store"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Tradewinds engine...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize credential store based on config
	var credStore store.CredentialStore
	switch cfg.Store.Type {
	case "mysql":
		db, err := sql.Open("mysql", cfg.Store.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		mysqlStore, err := store.NewMySQLCredentialStore(db)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		credStore = mysqlStore
		log.Println("MySQL credential store initialized")
	default: // sqlite
		sqliteStore, err := store.NewSQLiteCredentialStore(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		credStore = sqliteStore
		log.Println("SQLite credential store initialized")
	}
	defer credStore.Close()

	// Initialize response cache based on config
	var responseCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, using memory: %v", err)
			responseCache = cache.NewMemoryCache()
		} else {
			responseCache = redisCache
			log.Println("Redis response cache initialized")
		}
	default: // memory
		responseCache = cache.NewMemoryCache()
		log.Println("Memory response cache initialized")
	}
	defer responseCache.Close()

	// Initialize the request layer
	client, err := request.NewClient(request.Config{
		BaseURL:         cfg.API.BaseURL,
		RequestTimeout:  cfg.API.RequestTimeout,
		TransferTimeout: cfg.API.TransferTimeout,
		MaxRetryCount:   cfg.API.MaxRetryCount,
		RetryDelay:      cfg.API.RetryDelay,
		CacheTTL:        cfg.API.CacheTTL,
	}, responseCache, credStore)
	if err != nil {
		log.Fatalf("Failed to initialize request layer: %v", err)
	}

	// Initialize the event channel; it reads the session token from the
	// request layer and never owns it.
	channel := events.NewChannel(events.Config{
		URL:                 cfg.Socket.URL,
		HandshakeTimeout:    cfg.Socket.HandshakeTimeout,
		HeartbeatInterval:   cfg.Socket.HeartbeatInterval,
		BackgroundHeartbeat: cfg.Socket.BackgroundHeartbeat,
		LocationThrottle:    cfg.Socket.LocationThrottle,
		MaxReconnectTries:   cfg.Socket.MaxReconnectTries,
		MaxReconnectDelay:   cfg.Socket.MaxReconnectDelay,
		EventBufferSize:     cfg.Socket.EventBufferSize,
		DecodeStrict:        cfg.Socket.DecodeStrict,
	}, client)

	// Initialize the economy controller
	controller := economy.NewController(cfg.Economy, cfg.Socket.DecodeStrict, client, channel)

	// A 401 from the API and an auth-failure event on the socket end the
	// session the same way.
	client.OnSessionExpired = controller.HandleSessionExpired
	channel.OnAuthFailure = func() {
		client.Logout(context.Background())
		controller.HandleSessionExpired()
	}

	// Restore a persisted session (if any) and start the event loop
	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	controller.Start(startCtx)
	startCancel()

	// Initialize bridge handlers
	statusHandler := handler.NewStatusHandler(cfg.App.Version, controller, channel)
	authHandler := handler.NewAuthHandler(controller)
	tradeHandler := handler.NewTradeHandler(controller)
	stateHandler := handler.NewStateHandler(controller)
	feedHandler := handler.NewFeedHandler(channel)

	// Create router
	r := router.New(router.Config{
		StatusHandler: statusHandler,
		AuthHandler:   authHandler,
		TradeHandler:  tradeHandler,
		StateHandler:  stateHandler,
		FeedHandler:   feedHandler,
	})

	// Create the loopback bridge server
	srv := &http.Server{
		Addr:         cfg.Bridge.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Bridge.ReadTimeout,
		WriteTimeout: cfg.Bridge.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Bridge listening on %s", cfg.Bridge.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Bridge server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down engine...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.ShutdownTimeout)
	defer cancel()

	// Stop the controller first so no trades land mid-shutdown
	controller.Stop()
	client.CancelInflight()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Bridge shutdown error: %v", err)
	}

	log.Println("Engine stopped")
	fmt.Println("Goodbye!")
}
