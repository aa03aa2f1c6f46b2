/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/members/*        Roster management
  /api/plans/*          Compensation plan configs
  /api/assignments/*    Member-to-plan links
  /api/statements       Statement row loading
  /api/metrics/*        Self-gen and brokered aggregates
  /api/overrides/*      Manual figure overrides
  /api/payouts/*        Calculation, lifecycle, queries
  /api/scenarios/*      Demo scenarios
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Roster routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
		})

		// Plan routes
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.CreatePlan)
			r.Get("/{id}", h.GetPlan)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Post("/{id}/end", h.EndAssignment)
		})

		// Input loading routes
		r.Post("/statements", h.LoadStatementRows)
		r.Route("/metrics", func(r chi.Router) {
			r.Post("/self-gen", h.LoadSelfGen)
			r.Post("/brokered", h.LoadBrokered)
		})
		r.Route("/overrides", func(r chi.Router) {
			r.Put("/", h.SetOverride)
			r.Delete("/{code}", h.DeleteOverride)
		})

		// Payout routes
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", h.ListPayouts)
			r.Post("/calculate", h.Calculate)
			r.Post("/preview", h.Preview)
			r.Post("/finalize", h.FinalizePayouts)
			r.Post("/mark-paid", h.MarkPayoutsPaid)
			r.Get("/{id}/snapshot", h.GetPayoutSnapshot)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Commission Payout Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Commission Payout Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/members">/api/members</a> - List members</li>
<li><a href="/api/plans">/api/plans</a> - List plans</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
