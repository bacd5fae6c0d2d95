package router

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/juju/errors"

	"github.com/HatiCode/healthwatch/pkg/httpx"
	"github.com/HatiCode/healthwatch/pkg/inventory"
	"github.com/HatiCode/healthwatch/pkg/storage"
)

func (h *handlers) listMedicines(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.ListItems(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []storage.Item{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *handlers) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req inventory.NewItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.Inventory.CreateItem(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *handlers) getMedicine(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Inventory.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, detail)
}

func (h *handlers) mutateMedicine(w http.ResponseWriter, r *http.Request) {
	var m inventory.Mutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.Inventory.ApplyMutation(r.Context(), mux.Vars(r)["id"], m)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, res)
}

type seedMedicinesResponse struct {
	Message   string `json:"message"`
	Medicines int    `json:"medicines"`
}

func (h *handlers) seedMedicines(w http.ResponseWriter, r *http.Request) {
	created, err := h.Inventory.Seed(r.Context(), inventory.DefaultSeed())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, seedMedicinesResponse{
		Message:   "medicines seeded",
		Medicines: created,
	})
}

func (h *handlers) listExpiring(w http.ResponseWriter, r *http.Request) {
	items, err := h.Inventory.Expiring(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []inventory.ExpiringItem{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *handlers) listReorders(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Inventory.ListReorders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []storage.ReorderRequest{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, reqs)
}

type reorderStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *handlers) updateReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Status = strings.TrimSpace(req.Status)
	if req.ID == "" || req.Status == "" {
		httpx.WriteErrorMessage(w, http.StatusBadRequest, "missing id or status")
		return
	}
	updated, err := h.Inventory.UpdateReorder(r.Context(), req.ID, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, updated)
}

// writeError maps classified errors to client errors. Anything else is
// logged and answered with a generic 500.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.NotValid):
		httpx.WriteError(w, http.StatusBadRequest, err)
	case errors.Is(err, errors.NotFound):
		httpx.WriteError(w, http.StatusNotFound, err)
	case errors.Is(err, errors.AlreadyExists):
		httpx.WriteError(w, http.StatusConflict, err)
	default:
		h.Logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
