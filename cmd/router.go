package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/reviewgate/reviewgate/internal/handler"
	"github.com/reviewgate/reviewgate/internal/metrics"
)

func setupRouter(reviewHandler *handler.Handler, metricsCollector *metrics.Collector, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/review-pr", reviewHandler.ReviewPR)
	r.Get("/health", reviewHandler.Health)
	r.Get("/llm-status", reviewHandler.LLMStatus)
	r.Get("/metrics", metricsCollector.Handler())

	return r
}
