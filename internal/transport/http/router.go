package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"

	"quiz-play-service/internal/app"
	"quiz-play-service/internal/domain"
)

// NewRouter mounts the health check, the attempt status endpoint and the play socket.
func NewRouter(service *app.AttemptService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// The socket lives as long as the attempt, so it stays outside the request timeout.
	r.Get("/ws", NewWSHandler(service).ServeWS)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(15 * time.Second))
		api.Get("/attempts/{attemptID}", attemptStatus(service))
	})
	return r
}

func attemptStatus(service *app.AttemptService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := service.Status(chi.URLParam(r, "attemptID"))
		if errors.Is(err, domain.ErrAttemptNotFound) {
			respondJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
			return
		}
		if err != nil {
			respondJSON(w, http.StatusInternalServerError, errorPayload{Message: err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, status)
	}
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
