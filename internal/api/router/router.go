package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/webchat"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes out.
type Config struct {
	Logger             *logging.Logger
	MessagingHandler   *messaging.Handler
	WebChat            *webchat.Handler
	Admin              *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter throttles the public chat and webhook routes when set.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public chat surfaces.
	r.Group(func(public chi.Router) {
		if cfg.RateLimiter != nil {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}
		if cfg.MessagingHandler != nil {
			public.Post("/webhooks/twilio/messages", cfg.MessagingHandler.TwilioWebhook)
		}
		if cfg.WebChat != nil {
			public.Get("/ws/chat", cfg.WebChat.HandleWebSocket)
			public.Group(func(api chi.Router) {
				if origins := httpmiddleware.NewOriginPolicy(cfg.CORSAllowedOrigins); !origins.Empty() {
					api.Use(httpmiddleware.CORS(origins))
				}
				api.Post("/api/messages", cfg.WebChat.HandleMessage)
				api.Options("/api/messages", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})
				api.Get("/api/history", cfg.WebChat.HandleHistory)
			})
		}
	})

	if cfg.Admin != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.StaffAuth(cfg.AdminAuthSecret))
			admin.Mount("/admin", cfg.Admin.Routes())
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
