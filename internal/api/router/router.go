package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/nutri-agenda/internal/appointments"
	httpmiddleware "github.com/wolfman30/nutri-agenda/internal/http/middleware"
	"github.com/wolfman30/nutri-agenda/internal/patients"
	"github.com/wolfman30/nutri-agenda/internal/plans"
	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	PatientsHandler     *patients.Handler
	// PlansHandler is optional; without it plan drafting is not routed.
	PlansHandler       *plans.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// PlanRateLimiter throttles POST /api/plans/draft per client IP when set.
	PlanRateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.AllowContentType("application/json"))

		if h := cfg.AppointmentsHandler; h != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/upcoming", h.Upcoming)
				r.Get("/past", h.Past)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
			api.Route("/calendar", func(r chi.Router) {
				r.Get("/events", h.CalendarEvents)
				r.Get("/availability", h.Availability)
			})
		}

		api.Route("/patients", func(r chi.Router) {
			if h := cfg.PatientsHandler; h != nil {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
				r.Get("/{id}/plan-prompt", h.PlanPrompt)
			}
			if h := cfg.AppointmentsHandler; h != nil {
				r.Get("/{id}/appointments", h.PatientHistory)
				r.Get("/{id}/bmi-history", h.PatientBMIHistory)
			}
		})

		if h := cfg.PlansHandler; h != nil {
			api.Route("/plans", func(r chi.Router) {
				if cfg.PlanRateLimiter != nil {
					r.Use(httpmiddleware.RateLimit(cfg.PlanRateLimiter))
				}
				r.Post("/draft", h.Draft)
			})
		}
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
