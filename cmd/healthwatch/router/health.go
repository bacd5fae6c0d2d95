package router

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/healthwatch/pkg/httpx"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

const (
	defaultUpdatesLimit = 50
	maxUpdatesLimit     = 500
	defaultCategory     = "disease"
)

// listReadings serves stored readings, or the reader's output when the store
// fails or holds nothing for the request.
func (h *handlers) listReadings(w http.ResponseWriter, r *http.Request) {
	country := strings.TrimSpace(r.URL.Query().Get("country"))

	readings, err := h.Readings.ListReadings(r.Context(), country)
	if err != nil {
		h.Logger.Warn().Err(err).Str("country", country).Msg("reading store unavailable, serving live readings")
	}
	if err != nil || len(readings) == 0 {
		readings = h.Reader.FetchReadings(r.Context(), country)
	}
	if readings == nil {
		readings = []storage.Reading{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, readings)
}

type createReadingRequest struct {
	Country   string     `json:"country"`
	Indicator string     `json:"indicator"`
	Value     float64    `json:"value"`
	Category  string     `json:"category"`
	Date      *time.Time `json:"date"`
	IsAlert   bool       `json:"isAlert"`
}

func (h *handlers) createReading(w http.ResponseWriter, r *http.Request) {
	var req createReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Country = strings.TrimSpace(req.Country)
	req.Indicator = strings.TrimSpace(req.Indicator)
	if req.Country == "" || req.Indicator == "" {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "country and indicator are required")
		return
	}
	if req.Category == "" {
		req.Category = defaultCategory
	}
	observed := time.Now().UTC()
	if req.Date != nil && !req.Date.IsZero() {
		observed = req.Date.UTC()
	}

	stored, err := h.Readings.UpsertReading(r.Context(), storage.Reading{
		EntityKey:  req.Country,
		MetricName: req.Indicator,
		Value:      req.Value,
		Category:   req.Category,
		ObservedAt: observed,
		IsAlert:    req.IsAlert,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, stored)
}

// listUpdates serves the most recent update records. A failing store yields
// an empty list.
func (h *handlers) listUpdates(w http.ResponseWriter, r *http.Request) {
	limit := defaultUpdatesLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxUpdatesLimit)
	}

	updates, err := h.Readings.ListUpdates(r.Context(), limit)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("reading store unavailable, serving no updates")
		updates = nil
	}
	if updates == nil {
		updates = []storage.UpdateRecord{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, updates)
}

func (h *handlers) listOutbreaks(w http.ResponseWriter, r *http.Request) {
	var outbreaks []storage.Outbreak
	if h.Outbreaks != nil {
		outbreaks = h.Outbreaks.Outbreaks()
	}
	if outbreaks == nil {
		outbreaks = []storage.Outbreak{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, outbreaks)
}

type seedReadingsResponse struct {
	Message          string `json:"message"`
	HealthIndicators int    `json:"healthIndicators"`
}

// seedReadings fetches a full reading set and stores every reading. Unlike
// the poll loop, store failures are returned to the caller.
func (h *handlers) seedReadings(w http.ResponseWriter, r *http.Request) {
	readings := h.Reader.FetchReadings(r.Context(), "")
	for _, rd := range readings {
		if _, err := h.Readings.UpsertReading(r.Context(), rd); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.Logger.Info().Int("readings", len(readings)).Msg("seeded health indicators")
	_ = httpx.WriteJSON(w, http.StatusOK, seedReadingsResponse{
		Message:          "health indicators seeded",
		HealthIndicators: len(readings),
	})
}
