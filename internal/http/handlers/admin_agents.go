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

// secretWarning acompaña toda emisión de secret: solo se muestra una vez,
// el server guarda únicamente el hash.
const secretWarning = "Store this secret now. It cannot be recovered."

type AdminAgentsHandler struct{ c *app.Container }

func NewAdminAgentsHandler(c *app.Container) *AdminAgentsHandler {
	return &AdminAgentsHandler{c: c}
}

func (h *AdminAgentsHandler) Register(r chi.Router) {
	r.Post("/agents", h.create)
	r.Get("/agents", h.list)
	r.Get("/agents/{id}", h.get)
	r.Delete("/agents/{id}", h.delete)
}

type createAgentRequest struct {
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
	AgentID   string `json:"agent_id"`
}

func (h *AdminAgentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var body createAgentRequest
	if !httpx.ReadJSON(w, r, &body) {
		return
	}
	body.UserEmail = strings.TrimSpace(body.UserEmail)
	body.UserName = strings.TrimSpace(body.UserName)
	body.AgentID = strings.TrimSpace(body.AgentID)

	if !validation.ValidEmail(body.UserEmail) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_email inválido", 3101)
		return
	}
	if body.AgentID == "" {
		id, err := tokens.NewID("agent_", 16)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3102)
			return
		}
		body.AgentID = id
	} else if !validation.ValidIdentifier(body.AgentID) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "agent_id debe ser [A-Za-z0-9_-], mínimo 3 chars", 3103)
		return
	}

	secret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3104)
		return
	}
	hash, err := password.Hash(password.Default, secret)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3105)
		return
	}

	agent := &core.Agent{
		AgentID:    body.AgentID,
		SecretHash: hash,
		UserEmail:  body.UserEmail,
		UserName:   body.UserName,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.c.Store.CreateAgent(r.Context(), agent); err != nil {
		if err == core.ErrConflict {
			httpx.WriteError(w, http.StatusConflict, "invalid_request", "agent_id ya existe", 3106)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3107)
		return
	}

	logger.From(r.Context()).Info("agent created", logger.AgentID(agent.AgentID))
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"agent_id":     agent.AgentID,
		"agent_secret": secret,
		"user_email":   agent.UserEmail,
		"user_name":    agent.UserName,
		"created_at":   agent.CreatedAt,
		"warning":      secretWarning,
	})
}

func (h *AdminAgentsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.c.Store.ListAgents(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3111)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"agents": items})
}

func (h *AdminAgentsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agent, err := h.c.Store.GetAgent(r.Context(), id)
	if err != nil {
		if err == core.ErrNotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "agent no encontrado", 3121)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3122)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, agent)
}

func (h *AdminAgentsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.c.Store.DeleteAgent(r.Context(), id); err != nil {
		if err == core.ErrNotFound {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "agent no encontrado", 3131)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 3132)
		return
	}
	logger.From(r.Context()).Info("agent deleted", logger.AgentID(id))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
