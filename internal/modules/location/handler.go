package location

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes location and spot HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/locations", h.listLocations)
	r.Route("/api/v1/spots", func(r chi.Router) {
		r.Get("/", h.listSpots)   // GET /api/v1/spots?location_id=...&available=true
		r.Get("/{id}", h.getSpot) // GET /api/v1/spots/{id}
	})
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, locations)
}

func (h *Handler) listSpots(w http.ResponseWriter, r *http.Request) {
	var locationID uuid.UUID
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			web.Error(w, apperr.InvalidInput("invalid location_id"))
			return
		}
		locationID = id
	}
	available := r.URL.Query().Get("available") == "true"

	spots, err := h.service.ListSpots(r.Context(), locationID, available)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, spots)
}

func (h *Handler) getSpot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		web.Error(w, apperr.InvalidInput("invalid spot id"))
		return
	}
	spot, err := h.service.GetSpot(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, spot)
}
