package router

import (
	"tradewinds-engine/internal/handler"
	"tradewinds-engine/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating the UI bridge router.
type Config struct {
	StatusHandler *handler.StatusHandler
	AuthHandler   *handler.AuthHandler
	TradeHandler  *handler.TradeHandler
	StateHandler  *handler.StateHandler
	FeedHandler   *handler.FeedHandler
}

// New creates and configures the bridge router. The bridge listens on
// loopback only, so there is no auth layer; CORS stays permissive for
// local dev tooling that talks to it from a browser.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Unified status for the UI shell
	r.Get("/api/status", cfg.StatusHandler.Status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", cfg.StatusHandler.Health)

		// Session lifecycle
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.AuthHandler.Login)
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/logout", cfg.AuthHandler.Logout)
		})

		// Snapshots
		r.Get("/player", cfg.StateHandler.Player)
		r.Get("/merchants", cfg.StateHandler.Merchants)
		r.Get("/market", cfg.StateHandler.Market)
		r.Get("/feed", cfg.FeedHandler.Feed)
		r.Get("/players/nearby", cfg.FeedHandler.NearbyPlayers)

		// Commands
		r.Put("/player/location", cfg.StateHandler.UpdateLocation)
		r.Route("/trade", func(r chi.Router) {
			r.Post("/buy", cfg.TradeHandler.Buy)
			r.Post("/sell", cfg.TradeHandler.Sell)
			r.Get("/history", cfg.TradeHandler.History)
		})
		r.Post("/errors/dismiss", cfg.StateHandler.DismissError)
		r.Route("/lifecycle", func(r chi.Router) {
			r.Post("/background", cfg.StateHandler.Background)
			r.Post("/foreground", cfg.StateHandler.Foreground)
		})
	})

	return r
}
