package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/georgemunganga/materialive/internal/apperr"
	"github.com/georgemunganga/materialive/internal/web"
)

// Handler exposes login, logout and identity endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/api/v1/auth/login", h.login) // POST /api/v1/auth/login
}

// RegisterRoutes mounts the endpoints that need an authenticated principal.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/auth/logout", h.logout) // POST /api/v1/auth/logout
	r.Get("/api/v1/auth/me", h.me)          // GET  /api/v1/auth/me
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := web.Decode(r, &req); err != nil {
		web.Error(w, err)
		return
	}
	if req.Username == "" || req.PIN == "" {
		web.Error(w, apperr.InvalidInput("username and pin are required"))
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.PIN)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		web.Error(w, apperr.Unauthorized("authentication required"))
		return
	}
	if err := h.service.Logout(r.Context(), p); err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		web.Error(w, apperr.Unauthorized("authentication required"))
		return
	}
	web.Respond(w, http.StatusOK, p)
}
