/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for a frontend
  4. requestLog: Structured per-request logging (zerolog)

SECURITY NOTE:
  Actor identity comes from X-Actor-ID / X-Actor-Role headers. There is no
  authentication layer here; in a real deployment a gateway verifies the
  identity and sets these headers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))
	r.Use(requestLog(h.Log))

	r.Route("/api", func(r chi.Router) {
		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Get("/{id}/balances", h.GetBalances)
			r.Get("/{id}/requests", h.ListUserRequests)
			r.Get("/{id}/adjustments", h.ListUserAdjustments)
			r.Get("/{id}/audit", h.ListUserAudit)
		})

		// Leave request routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.SubmitRequest)
			r.Get("/{id}", h.GetRequest)
			r.Get("/{id}/audit", h.GetRequestAudit)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Delete("/{id}", h.CancelRequest)
			r.Post("/{id}/document", h.AttachDocument)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/overtime", h.CreditOvertime)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLog logs each request with method, path, status and latency.
func requestLog(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("latency", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
