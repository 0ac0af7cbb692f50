// Package http exposes the tracker's JSON API. The actor identity comes
// from the X-User-ID header; authorization itself lives in the guarded
// services, not here.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/services"
)

type Handler struct {
	families      *services.FamilyService
	expenses      *services.ExpenseService
	notifications *services.NotificationService
}

func NewHandler(families *services.FamilyService, expenses *services.ExpenseService, notifications *services.NotificationService) *Handler {
	return &Handler{
		families:      families,
		expenses:      expenses,
		notifications: notifications,
	}
}

// NewRouter wires all API routes.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}))

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())

	mux.Route("/api", func(api chi.Router) {
		api.Use(limiter.Middleware)

		api.Post("/families", h.CreateFamily)
		api.Get("/families/{familyID}", h.GetFamily)
		api.Put("/families/{familyID}/budget", h.UpdateBudget)

		api.Post("/families/{familyID}/expenses", h.CreateExpense)
		api.Put("/families/{familyID}/expenses/{expenseID}", h.UpdateExpense)

		api.Get("/families/{familyID}/notifications", h.ListNotifications)
		api.Get("/families/{familyID}/notifications/unread-count", h.UnreadCount)
		api.Post("/families/{familyID}/notifications/read", h.MarkAllRead)
		api.Post("/notifications/{notificationID}/read", h.MarkRead)
	})

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// NewServer builds the http.Server with the usual timeouts.
func NewServer(addr string, h *Handler, allowedOrigins []string) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        NewRouter(h, allowedOrigins),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}
