package sync

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes the sync agent ingress and the sync status query.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterIngestRoutes mounts the batch endpoints. The caller guards them
// with the sync key.
func (h *Handler) RegisterIngestRoutes(r chi.Router) {
	r.Post("/api/v1/sync/pos", h.syncPOs)
	r.Post("/api/v1/sync/received", h.syncReceived)
	r.Post("/api/v1/sync/locations", h.syncLocations)
	r.Post("/api/v1/sync/jobs", h.syncJobs)
}

// RegisterRoutes mounts the endpoints available to signed-in users.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/sync/status", h.status)
}

func (h *Handler) syncPOs(w http.ResponseWriter, r *http.Request) {
	var batch POBatch
	if err := web.Decode(r, &batch); err != nil {
		web.Error(w, err)
		return
	}
	if batch.PurchaseOrders == nil {
		web.Error(w, apperr.InvalidInput("purchaseOrders must be an array"))
		return
	}
	res, err := h.service.ReconcilePurchaseOrders(r.Context(), batch.PurchaseOrders)
	respondResult(w, res, err)
}

func (h *Handler) syncReceived(w http.ResponseWriter, r *http.Request) {
	var batch ReceivedItemBatch
	if err := web.Decode(r, &batch); err != nil {
		web.Error(w, err)
		return
	}
	if batch.ReceivedItems == nil {
		web.Error(w, apperr.InvalidInput("receivedItems must be an array"))
		return
	}
	res, err := h.service.ReconcileReceivedItems(r.Context(), batch.ReceivedItems)
	respondResult(w, res, err)
}

func (h *Handler) syncLocations(w http.ResponseWriter, r *http.Request) {
	var batch LocationBatch
	if err := web.Decode(r, &batch); err != nil {
		web.Error(w, err)
		return
	}
	if batch.Locations == nil {
		web.Error(w, apperr.InvalidInput("locations must be an array"))
		return
	}
	res, err := h.service.ReconcileLocations(r.Context(), batch.Locations)
	respondResult(w, res, err)
}

func (h *Handler) syncJobs(w http.ResponseWriter, r *http.Request) {
	var batch JobBatch
	if err := web.Decode(r, &batch); err != nil {
		web.Error(w, err)
		return
	}
	if batch.Jobs == nil {
		web.Error(w, apperr.InvalidInput("jobs must be an array"))
		return
	}
	res, err := h.service.ReconcileJobs(r.Context(), batch.Jobs)
	respondResult(w, res, err)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Status(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, st)
}

// respondResult reports the batch counts, including the partial counts of
// an aborted batch.
func respondResult(w http.ResponseWriter, res *Result, err error) {
	if err != nil {
		kind := apperr.KindOf(err)
		web.Respond(w, web.StatusFor(kind), map[string]interface{}{
			"error":   kind,
			"message": apperr.Message(err),
			"result":  res,
		})
		return
	}
	web.Respond(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  res,
	})
}
