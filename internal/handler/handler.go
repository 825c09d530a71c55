// Package handler exposes the solver over HTTP: one endpoint accepts a JSON
// problem document and answers with the solved timetable.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/acadgrid/timetabler/internal/config"
)

type Handler struct {
	config *config.Config

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		config: cfg,
		Mux:    chi.NewRouter(),
	}
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/health", h.Health)
	h.Mux.Route("/api", func(r chi.Router) {
		r.Post("/schedule", h.Schedule)
	})
}
