package board

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes the board and dashboard HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/board", h.board)         // GET /api/v1/board?location=1
	r.Get("/api/v1/dashboard", h.dashboard) // GET /api/v1/dashboard
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	number := int64(DefaultLocationNumber)
	if raw := r.URL.Query().Get("location"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			web.Error(w, apperr.InvalidInput("invalid location number %q", raw))
			return
		}
		number = n
	}
	b, err := h.service.Board(r.Context(), number)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, b)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, d)
}
