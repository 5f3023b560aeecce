package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/divsage/internal/api/handlers"
	"github.com/wonny/divsage/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// SSOT: routing configuration lives in this function only
func NewRouter(
	recHandler *handlers.RecommendationHandler,
	holdingHandler *handlers.HoldingHandler,
	dataHandler *handlers.DataHandler,
	healthHandler *handlers.HealthHandler,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthHandler.Check).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Recommendation endpoints
	api.HandleFunc("/recommendations", recHandler.Create).Methods("POST")
	api.HandleFunc("/recommendations", recHandler.List).Methods("GET")
	api.HandleFunc("/recommendations/{id}", recHandler.Get).Methods("GET")

	// Holding endpoints
	api.HandleFunc("/holdings", holdingHandler.List).Methods("GET")
	api.HandleFunc("/holdings", holdingHandler.Create).Methods("POST")
	api.HandleFunc("/holdings/{id}", holdingHandler.Get).Methods("GET")
	api.HandleFunc("/holdings/{id}", holdingHandler.Update).Methods("PUT")
	api.HandleFunc("/holdings/{id}", holdingHandler.Delete).Methods("DELETE")

	// Data endpoints
	api.HandleFunc("/data/refresh", dataHandler.Refresh).Methods("POST")
	api.HandleFunc("/data/jobs", dataHandler.JobStats).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
