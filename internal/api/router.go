// Docket - Legal Document Graph Extraction Pipeline
// Copyright 2026 Joe Ott (joeott)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/joeott/legal-doc-processor-sub010

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joeott/legal-doc-processor-sub010/internal/config"
	"github.com/joeott/legal-doc-processor-sub010/internal/middleware"
)

// NewRouter builds the Chi router with the full middleware stack.
func NewRouter(h *Handler, cfg config.APIConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints get a permissive limit so probes never starve.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, cfg.RateLimitWindow))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Post("/documents", h.SubmitDocument)
		r.Get("/documents", h.ListDocuments)

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Get("/text", h.GetText)
			r.Get("/chunks", h.GetChunks)
			r.Get("/mentions", h.GetMentions)
			r.Get("/entities", h.GetEntities)
			r.Get("/relationships", h.GetRelationships)
			r.Post("/reprocess", h.Reprocess)
			r.Post("/cancel", h.Cancel)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
