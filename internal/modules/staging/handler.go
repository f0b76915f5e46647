package staging

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/modules/auth"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes staging and delivery HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/staging", func(r chi.Router) {
		r.Get("/", h.listActive)                // GET   /api/v1/staging
		r.Post("/", h.stage)                    // POST  /api/v1/staging
		r.Get("/{id}", h.getRecord)             // GET   /api/v1/staging/{id}
		r.Patch("/{id}/status", h.updateStatus) // PATCH /api/v1/staging/{id}/status
	})
	r.Route("/api/v1/deliveries", func(r chi.Router) {
		r.Get("/", h.listDeliveries)   // GET  /api/v1/deliveries
		r.Post("/", h.confirmDelivery) // POST /api/v1/deliveries
	})
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListActive(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req StageRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	rec, err := h.service.Stage(r.Context(), p, req)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, rec)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.GetRecord(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, rec)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	rec, err := h.service.UpdateStatus(r.Context(), p, id, Status(req.Status))
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, rec)
}

func (h *Handler) listDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.service.ListDeliveries(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]interface{}{"deliveries": deliveries})
}

func (h *Handler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req DeliveryRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	d, err := h.service.ConfirmDelivery(r.Context(), p, req)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, d)
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		web.Error(w, apperr.Unauthorized("authentication required"))
	}
	return p, ok
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, apperr.InvalidInput("invalid staging record id"))
		return uuid.Nil, false
	}
	return id, true
}
