package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/litrev/internal/api/sse"
	v1 "github.com/gosuda/litrev/internal/api/v1"
	"github.com/gosuda/litrev/internal/api/ws"
)

func registerAPIRoutes(api huma.API, store v1.SessionStore, launcher v1.ReviewLauncher, defaults v1.ReviewDefaults) {
	v1.RegisterReviewRoutes(api, store, launcher, defaults)
}

func registerStreamRoutes(r chi.Router, handler *sse.Handler) {
	r.Get("/reviews/{id}/stream", handler.ServeHTTP)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/reviews/{sessionID}", hub.ServeReview)
}
