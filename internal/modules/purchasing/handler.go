package purchasing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes purchase order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Get("/", h.listOpen)            // GET /api/v1/pos
		r.Get("/{id}", h.getPO)           // GET /api/v1/pos/{id}
		r.Get("/{id}/items", h.listItems) // GET /api/v1/pos/{id}/items
	})
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.ListOpenPOs(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]interface{}{"purchase_orders": pos})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	po, err := h.service.GetPO(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, po)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListItems(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]interface{}{"items": items})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, apperr.InvalidInput("invalid purchase order id"))
		return uuid.Nil, false
	}
	return id, true
}
