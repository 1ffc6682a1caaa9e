/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. Timeout:    Request-level deadline so store I/O cannot hang a
                 request forever (surfaces as StorageTimeout)
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/rotation/*   Pure generation preview
  /api/users/*      Users, credits, shifts, templates, rotation apply
  /api/shifts/*     Per-shift extras

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RequestTimeout bounds every request, storage I/O included.
const RequestTimeout = 15 * time.Second

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Rotation preview (pure, no auth, no credits)
		r.Post("/rotation/preview", h.PreviewRotation)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Post("/rotation", h.ApplyRotation)
				r.Get("/credits", h.GetCredits)
				r.Post("/charge", h.Charge)
				r.Get("/transactions", h.GetTransactions)
				r.Get("/shifts", h.ListShifts)
				r.Post("/shifts", h.CreateShift)
				r.Get("/calendar.ics", h.ExportCalendar)
				r.Get("/shift-templates", h.ListShiftTemplates)
				r.Post("/shift-templates", h.CreateShiftTemplate)
				r.Get("/rotation-templates", h.ListRotationTemplates)
				r.Post("/rotation-templates", h.CreateRotationTemplate)
			})
		})

		// Per-shift routes
		r.Route("/shifts/{id}", func(r chi.Router) {
			r.Get("/extras", h.ListExtras)
			r.Post("/extras", h.AddExtra)
		})
	})

	return r
}
