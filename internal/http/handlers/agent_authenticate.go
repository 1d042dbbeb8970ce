package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	"github.com/dropDatabas3/agentgate/internal/security/password"
	tokens "github.com/dropDatabas3/agentgate/internal/security/token"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

type agentAuthRequest struct {
	RequestID   string `json:"request_id"`
	AgentID     string `json:"agent_id"`
	AgentSecret string `json:"agent_secret"`
	Model       string `json:"model"`
}

// NewAgentAuthenticateHandler arma el POST /api/agent/authenticate: el canal
// trasero por donde el agente presenta sus credenciales. Política one-shot:
// un intento con credenciales inválidas termina el AuthRequest en error.
func NewAgentAuthenticateHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo POST", 2300)
			return
		}
		var body agentAuthRequest
		if !httpx.ReadJSON(w, r, &body) {
			return
		}
		body.RequestID = strings.TrimSpace(body.RequestID)
		body.AgentID = strings.TrimSpace(body.AgentID)
		body.Model = strings.TrimSpace(body.Model)

		if body.RequestID == "" || body.AgentID == "" || body.AgentSecret == "" || body.Model == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request_id, agent_id, agent_secret y model son obligatorios", 2301)
			return
		}

		ctx := r.Context()
		req, err := c.Store.GetAuthRequest(ctx, body.RequestID)
		if err != nil {
			if err == core.ErrNotFound {
				httpx.WriteError(w, http.StatusNotFound, "not_found", "authorization request no encontrado", 2302)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2303)
			return
		}

		if req.Status != core.StatusPending {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request status is "+string(req.Status), 2304)
			return
		}
		if time.Now().After(req.ExpiresAt) {
			_ = c.Store.ExpireAuthRequest(ctx, req.RequestID)
			httpx.WriteError(w, http.StatusBadRequest, "request_expired", "authorization request expirado", 2305)
			return
		}

		agent, err := c.Store.GetAgent(ctx, body.AgentID)
		if err != nil || !password.Verify(body.AgentSecret, agent.SecretHash) {
			// One-shot: credenciales inválidas terminan el request.
			_ = c.Store.FailAuthRequest(ctx, req.RequestID, "Invalid agent credentials")
			logger.From(ctx).Warn("agent authentication failed",
				logger.AuthReqID(req.RequestID),
				logger.AgentID(body.AgentID),
			)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", "credenciales de agente inválidas", 2306)
			return
		}

		code, err := tokens.NewCode()
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2307)
			return
		}
		if err := c.Store.MarkAuthenticated(ctx, req.RequestID, agent.AgentID, body.Model, code); err != nil {
			if err == core.ErrConflict {
				// Otro intento ganó la transición.
				httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request ya no está pending", 2308)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2309)
			return
		}

		logger.From(ctx).Info("agent authenticated",
			logger.AuthReqID(req.RequestID),
			logger.AgentID(agent.AgentID),
			logger.Model(body.Model),
		)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
