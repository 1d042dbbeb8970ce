package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	"github.com/dropDatabas3/agentgate/internal/security/password"
	tokens "github.com/dropDatabas3/agentgate/internal/security/token"
	"github.com/dropDatabas3/agentgate/internal/store/core"
	"github.com/dropDatabas3/agentgate/internal/validation"
)

type AdminClientsHandler struct{ c *app.Container }

func NewAdminClientsHandler(c *app.Container) *AdminClientsHandler {
	return &AdminClientsHandler{c: c}
}

func (h *AdminClientsHandler) Register(r chi.Router) {
	r.Post("/clients", h.create)
	r.Get("/clients", h.list)
	r.Get("/clients/{id}", h.get)
	r.Put("/clients/{id}", h.update)
	r.Delete("/clients/{id}", h.delete)
}

type createClientRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
	ClientID     string   `json:"client_id"`
}

func (h *AdminClientsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body createClientRequest
	if !httpx.ReadJSON(w, r, &body) {
		return
	}
	body.ClientName = strings.TrimSpace(body.ClientName)
	body.ClientID = strings.TrimSpace(body.ClientID)

	if body.ClientName == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "client_name es obligatorio", 3201)
		return
	}
	if len(body.RedirectURIs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "redirect_uris es obligatorio", 3202)
		return
	}
	for _, u := range body.RedirectURIs {
		if !validation.ValidURL(u) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "redirect_uri inválido: "+u, 3203)
			return
		}
	}
	if body.ClientID == "" {
		id, err := tokens.NewID("client_", 16)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3204)
			return
		}
		body.ClientID = id
	} else if !validation.ValidIdentifier(body.ClientID) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "client_id debe ser [A-Za-z0-9_-], mínimo 3 chars", 3205)
		return
	}

	secret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3206)
		return
	}
	hash, err := password.Hash(password.Default, secret)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3207)
		return
	}

	client := &core.Client{
		ClientID:     body.ClientID,
		SecretHash:   hash,
		Name:         body.ClientName,
		RedirectURIs: body.RedirectURIs,
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.c.Store.CreateClient(r.Context(), client); err != nil {
		if err == core.ErrConflict {
			httpx.WriteError(w, http.StatusConflict, "invalid_request", "client_id ya existe", 3208)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3209)
		return
	}

	logger.From(r.Context()).Info("client created", logger.ClientID(client.ClientID))
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"client_id":     client.ClientID,
		"client_secret": secret,
		"client_name":   client.Name,
		"redirect_uris": client.RedirectURIs,
		"grant_types":   client.GrantTypes,
		"created_at":    client.CreatedAt,
		"warning":       secretWarning,
	})
}

func (h *AdminClientsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.c.Store.ListClients(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3211)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"clients": items})
}

func (h *AdminClientsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	client, err := h.c.Store.GetClient(r.Context(), id)
	if err != nil {
		if err == core.ErrNotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "client no encontrado", 3221)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3222)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client)
}

type updateClientRequest struct {
	ClientName   string   `json:"client_name"`
	RedirectURIs []string `json:"redirect_uris"`
}

func (h *AdminClientsHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body updateClientRequest
	if !httpx.ReadJSON(w, r, &body) {
		return
	}
	for _, u := range body.RedirectURIs {
		if !validation.ValidURL(u) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "redirect_uri inválido: "+u, 3231)
			return
		}
	}

	// Update parcial: campos vacíos/nil no tocan el registro.
	upd := &core.Client{
		ClientID:     id,
		Name:         strings.TrimSpace(body.ClientName),
		RedirectURIs: body.RedirectURIs,
	}
	if err := h.c.Store.UpdateClient(r.Context(), upd); err != nil {
		if err == core.ErrNotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "client no encontrado", 3232)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3233)
		return
	}

	client, err := h.c.Store.GetClient(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3234)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, client)
}

func (h *AdminClientsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.c.Store.DeleteClient(r.Context(), id); err != nil {
		if err == core.ErrNotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "client no encontrado", 3241)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3242)
		return
	}
	logger.From(r.Context()).Info("client deleted", logger.ClientID(id))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
