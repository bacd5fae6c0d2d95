// Package router configures the auxiliary HTTP server of the watcher.
//
// Routes configured:
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /readyz  - 200 once the watcher has received the stream greeting
//   - GET /metrics - Prometheus metrics endpoint
package router

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/httpx"
)

// SetupRoutes configures HTTP routes for the watcher. ready backs /readyz.
func SetupRoutes(ready func(ctx context.Context) error, metrics http.Handler, logger *zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(httpx.RecoveryMiddleware(logger))

	r.Handle("/healthz", httpx.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", httpx.HealthHandlerWithCheck(ready)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics).Methods(http.MethodGet)

	return r
}
