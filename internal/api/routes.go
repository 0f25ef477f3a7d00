package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. metricsHandler may be nil.
func SetupRoutes(handler *Handler, metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods("GET")
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Price routes
	api.HandleFunc("/price/latest", handler.LatestPrice).Methods("GET")
	api.HandleFunc("/price/stream", handler.PriceStream).Methods("GET")

	// Alert routes
	api.HandleFunc("/alerts", handler.CreateAlert).Methods("POST")
	api.HandleFunc("/alerts", handler.ListAlerts).Methods("GET")
	api.HandleFunc("/alerts/{id:[0-9]+}", handler.DeleteAlert).Methods("DELETE")

	return r
}
