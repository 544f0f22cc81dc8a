/**
 * @description
 * This file sets up the HTTP router for the membership service using the
 * go-chi/chi router. It defines the API routes, applies middleware for
 * logging, CORS, authentication and rate limiting, and maps the routes to
 * their corresponding handler functions.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the membership routes.
// limiter may be nil when Redis is not configured.
func NewRouter(h *Handler, jwtSecret string, limiter RateLimiter, registerPerMinute int) *chi.Mux {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Membership service is healthy"))
	})

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))
		r.Use(ThrottleMutations(NewTokenBucketLimiter(60)))

		r.Get("/plans", h.handleListPlans)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.handleListMembers)
			r.With(rateLimitIfConfigured(limiter, "register_member", registerPerMinute)).
				Post("/", h.handleRegister)

			r.Route("/{memberID}", func(r chi.Router) {
				r.Get("/", h.handleGetMember)
				r.Patch("/", h.handleUpdateMember)
				r.Delete("/", h.handleDeleteMember)
				r.Post("/renew", h.handleRenewMembership)
				r.Post("/photo", h.handleAttachPhoto)
				r.Delete("/photo", h.handleRemovePhoto)
				r.Get("/payments", h.handleListPayments)
			})
		})

		r.Get("/payments/stats", h.handlePaymentStats)
	})

	return r
}

func rateLimitIfConfigured(limiter RateLimiter, scope string, perMinute int) func(http.Handler) http.Handler {
	if limiter == nil || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(limiter, scope, perMinute)
}
