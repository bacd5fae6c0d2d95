// Package router configures the HTTP routes of the healthwatch service.
//
// Routes configured:
//   - GET  /healthz                health check (200 OK)
//   - GET  /readyz                 readiness, pings the store (503 on failure)
//   - GET  /metrics                Prometheus metrics
//   - GET  /api/who/stream         event stream of health updates
//   - GET  /api/events             event stream of stock updates
//   - GET  /api/ws                 websocket carrying both topics
//   - GET  /api/stream/stats       live session counts
//   - GET  /api/who/health         current readings (?country=)
//   - POST /api/who/health         record a reading
//   - GET  /api/who/updates        recent update records (?limit=)
//   - GET  /api/who/outbreaks      active outbreak roster
//   - POST /api/who/seed           fetch readings and store them all
//   - GET  /api/medicines          list medicines
//   - POST /api/medicines          create a medicine
//   - POST /api/medicines/seed     load the built-in medicine roster
//   - GET  /api/medicines/{id}     medicine with recent transactions
//   - PATCH /api/medicines/{id}    stock movement {event, quantity}
//   - GET  /api/expiring           medicines expiring within 30 days
//   - GET  /api/reorder            reorder requests, newest first
//   - POST /api/reorder            reorder status change {id, status}
//
// Read endpoints never fail: when the store is unreachable or empty they
// serve the data source's output instead. Mutations surface their errors.
package router

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/pkg/adapters"
	"github.com/HatiCode/healthwatch/pkg/events"
	"github.com/HatiCode/healthwatch/pkg/httpx"
	"github.com/HatiCode/healthwatch/pkg/inventory"
	"github.com/HatiCode/healthwatch/pkg/storage"
	"github.com/HatiCode/healthwatch/pkg/stream"
)

// OutbreakSource lists active outbreaks. *adapters.Synthetic implements it.
type OutbreakSource interface {
	Outbreaks() []storage.Outbreak
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Readings  storage.ReadingStore
	Reader    adapters.Reader
	Outbreaks OutbreakSource
	Inventory *inventory.Service
	Streams   *stream.Manager
	// Ready backs /readyz. Defaults to pinging Readings.
	Ready  func(ctx context.Context) error
	Logger *zerolog.Logger
	// Metrics serves /metrics. Defaults to the default Prometheus registry.
	Metrics http.Handler
}

// SetupRoutes builds the service router.
func SetupRoutes(d Deps) *mux.Router {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.Ready == nil {
		d.Ready = d.Readings.Ping
	}
	if d.Metrics == nil {
		d.Metrics = promhttp.Handler()
	}
	h := &handlers{Deps: d}

	r := mux.NewRouter()
	r.Use(httpx.RecoveryMiddleware(d.Logger), httpx.LoggingMiddleware(d.Logger))

	r.Handle("/healthz", httpx.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", httpx.HealthHandlerWithCheck(d.Ready)).Methods(http.MethodGet)
	r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Streams
	api.Handle("/who/stream", d.Streams.SSEHandler(events.TopicHealthUpdate)).Methods(http.MethodGet)
	api.Handle("/events", d.Streams.SSEHandler(events.TopicStockUpdate)).Methods(http.MethodGet)
	api.Handle("/ws", d.Streams.WebSocketHandler(events.TopicHealthUpdate, events.TopicStockUpdate)).Methods(http.MethodGet)
	api.HandleFunc("/stream/stats", h.streamStats).Methods(http.MethodGet)

	// Health indicators
	api.HandleFunc("/who/health", h.listReadings).Methods(http.MethodGet)
	api.HandleFunc("/who/health", h.createReading).Methods(http.MethodPost)
	api.HandleFunc("/who/updates", h.listUpdates).Methods(http.MethodGet)
	api.HandleFunc("/who/outbreaks", h.listOutbreaks).Methods(http.MethodGet)
	api.HandleFunc("/who/seed", h.seedReadings).Methods(http.MethodPost)

	// Inventory
	api.HandleFunc("/medicines", h.listMedicines).Methods(http.MethodGet)
	api.HandleFunc("/medicines", h.createMedicine).Methods(http.MethodPost)
	api.HandleFunc("/medicines/seed", h.seedMedicines).Methods(http.MethodPost)
	api.HandleFunc("/medicines/{id}", h.getMedicine).Methods(http.MethodGet)
	api.HandleFunc("/medicines/{id}", h.mutateMedicine).Methods(http.MethodPatch)
	api.HandleFunc("/expiring", h.listExpiring).Methods(http.MethodGet)
	api.HandleFunc("/reorder", h.listReorders).Methods(http.MethodGet)
	api.HandleFunc("/reorder", h.updateReorder).Methods(http.MethodPost)

	return r
}

type handlers struct {
	Deps
}

func (h *handlers) streamStats(w http.ResponseWriter, r *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, h.Streams.Stats())
}
