package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/rpgify/internal/questservice"
	"github.com/starford/rpgify/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, serves GET /events inside the auth group and receives
// dashboards rendered on demand.
func NewRouter(svc *questservice.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Dashboard.
	r.Get("/dashboard", h.GetDashboard)
	r.Post("/dashboard/render", h.RenderDashboard)

	// Quests.
	r.Get("/quests", h.ListQuests)
	r.Post("/quests", h.CreateQuest)
	r.Post("/quests/move", h.MoveQuest)
	r.Get("/quests/*", h.GetQuest)
	r.Delete("/quests/*", h.DeleteQuest)

	// Tasks.
	r.Post("/tasks/toggle", h.ToggleTask)

	// Search.
	r.Get("/search", h.Search)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
