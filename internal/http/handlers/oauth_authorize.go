package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/agentgate/internal/security/token"
	"github.com/dropDatabas3/agentgate/internal/store/core"
	"github.com/dropDatabas3/agentgate/internal/validation"
)

// NewOAuthAuthorizeHandler arma el GET /authorize: valida los parámetros,
// crea el AuthRequest en pending y devuelve la landing HTML con el
// request_id embebido. Todo error de validación se renderiza como página,
// nunca como redirect (el redirect_uri todavía no está verificado).
func NewOAuthAuthorizeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo GET", 2100)
			return
		}

		q := r.URL.Query()
		responseType := strings.TrimSpace(q.Get("response_type"))
		clientID := strings.TrimSpace(q.Get("client_id"))
		redirectURI := strings.TrimSpace(q.Get("redirect_uri"))
		state := strings.TrimSpace(q.Get("state"))
		challenge := strings.TrimSpace(q.Get("code_challenge"))
		method := strings.TrimSpace(q.Get("code_challenge_method"))
		scope := strings.TrimSpace(q.Get("scope"))

		if responseType != "code" {
			httpx.IncAuthorize("invalid")
			writeErrorPage(w, "unsupported_response_type", "response_type must be \"code\"")
			return
		}
		if clientID == "" || redirectURI == "" || state == "" || challenge == "" || method == "" {
			httpx.IncAuthorize("invalid")
			writeErrorPage(w, "invalid_request", "missing required parameters")
			return
		}
		if !validation.ValidChallengeMethod(method) {
			httpx.IncAuthorize("invalid")
			writeErrorPage(w, "invalid_request", "code_challenge_method must be S256")
			return
		}
		if !validation.ValidURL(redirectURI) {
			httpx.IncAuthorize("invalid")
			writeErrorPage(w, "invalid_request", "redirect_uri must be an absolute URL")
			return
		}

		ctx := r.Context()
		cl, err := c.Store.GetClient(ctx, clientID)
		if err != nil {
			httpx.IncAuthorize("invalid")
			if err == core.ErrNotFound {
				writeErrorPage(w, "invalid_request", "unknown client")
				return
			}
			writeErrorPage(w, "server_error", "internal error")
			return
		}
		if !validation.RedirectAllowed(redirectURI, cl.RedirectURIs) {
			httpx.IncAuthorize("invalid")
			writeErrorPage(w, "invalid_request", "redirect_uri is not registered for this client")
			return
		}

		if scope == "" {
			scope = c.DefaultScope
		}

		requestID, err := tokens.NewRequestID()
		if err != nil {
			writeErrorPage(w, "server_error", "internal error")
			return
		}
		now := time.Now().UTC()
		req := &core.AuthRequest{
			RequestID:       requestID,
			ClientID:        clientID,
			RedirectURI:     redirectURI,
			State:           state,
			CodeChallenge:   challenge,
			ChallengeMethod: method,
			Scope:           scope,
			Status:          core.StatusPending,
			CreatedAt:       now,
			ExpiresAt:       now.Add(c.RequestTTL),
		}
		if err := c.Store.CreateAuthRequest(ctx, req); err != nil {
			logger.From(ctx).Error("create auth request failed", logger.Err(err))
			writeErrorPage(w, "server_error", "internal error")
			return
		}
		httpx.IncAuthorize("created")

		logger.From(ctx).Info("authorization request created",
			logger.AuthReqID(requestID),
			logger.ClientID(clientID),
		)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = landingTmpl.Execute(w, landingData{
			RequestID:  requestID,
			ClientName: cl.Name,
			Scope:      scope,
		})
	}
}
