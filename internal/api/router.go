package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/scriptcast/internal/api/handler"
	mw "github.com/iconidentify/scriptcast/internal/api/middleware"
	"github.com/iconidentify/scriptcast/internal/auth"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	sessionHandler *handler.SessionHandler,
	chatHandler *handler.ChatHandler,
	healthHandler *handler.HealthHandler,
	authenticator auth.Authenticator,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.UserAuth(authenticator))

		// System stats
		r.Get("/stats", healthHandler.Stats)

		// Chat operations
		r.Post("/chat", chatHandler.Chat)
		r.Get("/models", chatHandler.Models)
		r.Get("/system-prompt", chatHandler.GetSystemPrompt)
		r.Put("/system-prompt", chatHandler.UpdateSystemPrompt)
		r.Post("/export", chatHandler.Export)

		// Session script and video operations
		r.Post("/sessions/{sessionID}/extract-script", sessionHandler.ExtractScript)
		r.Get("/sessions/{sessionID}/script", sessionHandler.GetScript)
		r.Put("/sessions/{sessionID}/script", sessionHandler.UpdateScript)
		r.Post("/sessions/{sessionID}/generate-video", sessionHandler.GenerateVideo)
	})

	return r
}
