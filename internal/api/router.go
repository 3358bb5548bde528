package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crestline/bidwise/internal/config"
	"github.com/crestline/bidwise/internal/decision"
	"github.com/crestline/bidwise/internal/events"
	"github.com/crestline/bidwise/internal/store"
)

func NewRouter(s store.Store, ev events.Client, engine *decision.Engine, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimit))

	frameworks := NewFrameworksHandler(s, ev)
	scenarios := NewScenariosHandler(s, ev, engine)
	comparisons := NewComparisonsHandler(s, ev, engine)
	templates := NewTemplatesHandler(s)
	history := NewHistoryHandler(s, ev, engine, cfg.Engine.DefaultGranularity)
	admin := NewAdminHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(UserIDMiddleware)

		r.Post("/frameworks", frameworks.Create)
		r.Get("/frameworks", frameworks.List)
		r.Post("/frameworks/validate", frameworks.Validate)
		r.Get("/frameworks/{id}", frameworks.Get)
		r.Put("/frameworks/{id}", frameworks.Update)
		r.Delete("/frameworks/{id}", frameworks.Delete)

		r.Post("/scenarios", scenarios.Create)
		r.Get("/scenarios", scenarios.List)
		r.Get("/scenarios/{id}", scenarios.Get)
		r.Patch("/scenarios/{id}", scenarios.Update)
		r.Delete("/scenarios/{id}", scenarios.Delete)
		r.Post("/scenarios/{id}/analyze", scenarios.Analyze)
		r.Get("/scenarios/{id}/recommendations", scenarios.Recommendations)
		r.Post("/scenarios/{id}/template", scenarios.ApplyTemplate)
		r.Get("/scenarios/{id}/export", scenarios.Export)

		r.Post("/comparisons", comparisons.Create)
		r.Get("/comparisons/{id}", comparisons.Get)

		r.Post("/templates", templates.Create)
		r.Get("/templates", templates.List)
		r.Get("/templates/{id}", templates.Get)

		r.Post("/history", history.Record)
		r.Get("/history", history.List)
		r.Get("/history/{id}", history.Get)
		r.Post("/history/{id}/outcome", history.RecordOutcome)
		r.Get("/analytics", history.Analytics)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
