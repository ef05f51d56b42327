/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:    Unique ID per request for tracing
  2. RequestLogger: zerolog logger on the request context + access log
  3. Recoverer:    Panic recovery (500 instead of crash)
  4. StripSlashes: "/simulate/" and "/simulate" are the same route
  5. CORS:         Cross-origin requests for the front end
  6. auth:         Bearer token → Identity, on /api only

ROUTE GROUPS:
  /healthz              Liveness, unauthenticated
  /api/atendimentos/*   Attendances and simulation
  /api/coeficientes/*   Coefficient table

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logger
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lifecaller/simulator/auth"
	"github.com/rs/zerolog"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Logger      zerolog.Logger
	CORSOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, a *auth.Authenticator, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(a))

		// Attendance routes
		r.Route("/atendimentos", func(r chi.Router) {
			r.Post("/", h.CreateAttendance)
			r.Get("/{id}", h.GetAttendance)
			r.Post("/{id}/simulate", h.Simulate)
		})

		// Coefficient routes
		r.Route("/coeficientes", func(r chi.Router) {
			r.Get("/", h.ListCoefficients)
			r.Get("/lookup", h.LookupCoefficient)
			r.Post("/import", h.ImportCoefficients)
		})
	})

	return r
}
