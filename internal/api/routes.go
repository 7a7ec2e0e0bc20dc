package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/relay"
)

// SetupRoutes configures the webhook routes. The submission endpoint is
// mounted at the root as well, matching the single-function deployment
// where the platform posts to the bare URL.
func SetupRoutes(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS - fundraiser pages post from arbitrary origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.HandleHealth)

	// Submission intake
	r.Post("/", h.HandleSubmit)
	r.Post("/webhook/fundraiseathon", h.HandleSubmit)

	// Non-POST on a known route still gets the JSON envelope
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, Response{
			RequestID: RequestIDFromContext(req.Context()),
			Result:    *relay.Failure(relay.ReasonMethodNotAllowed, "only POST deliveries are accepted"),
		})
	})

	return r
}

// requestIDMiddleware honors an inbound X-Request-ID so relay logs line up
// with the form platform's delivery logs, and mints one otherwise. The ID
// is stored under chi's request ID key so middleware.Logger picks it up.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the correlation ID for the request.
func RequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
