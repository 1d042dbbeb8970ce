package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	tokens "github.com/dropDatabas3/agentgate/internal/security/token"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// inactive es la única respuesta negativa de introspección: sin detalle,
// para no servir de oráculo (RFC 7662 §2.2).
var inactive = map[string]any{"active": false}

// NewOAuthIntrospectHandler arma el POST /introspect (RFC 7662).
func NewOAuthIntrospectHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo POST", 2500)
			return
		}
		params, err := parseOAuthParams(w, r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), 2501)
			return
		}
		clientID, clientSecret := clientCredentials(r, params)
		ctx := r.Context()
		cl, ok := authenticateClient(ctx, c, clientID, clientSecret)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", "client inválido", 2502)
			return
		}

		tokenStr := strings.TrimSpace(params.Get("token"))
		if tokenStr == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token requerido", 2503)
			return
		}
		hint := strings.TrimSpace(params.Get("token_type_hint"))

		if hint == "refresh_token" {
			if resp, ok := introspectRefresh(ctx, c, cl, tokenStr); ok {
				httpx.WriteJSON(w, http.StatusOK, resp)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, inactive)
			return
		}

		if resp, ok := introspectAccess(ctx, c, cl, tokenStr); ok {
			httpx.WriteJSON(w, http.StatusOK, resp)
			return
		}
		if resp, ok := introspectRefresh(ctx, c, cl, tokenStr); ok {
			httpx.WriteJSON(w, http.StatusOK, resp)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, inactive)
	}
}

// lookupTokenByAccess resuelve el Token del access string: primero por el
// índice del cache, con fallback al scan del store.
func lookupTokenByAccess(ctx context.Context, c *app.Container, access string) (*core.Token, error) {
	hash := tokens.SHA256Base64URL(access)
	if c.Cache != nil {
		if id, ok := c.Cache.Get(accessIndexKey(access)); ok {
			if t, err := c.Store.GetToken(ctx, string(id)); err == nil {
				return t, nil
			}
		}
	}
	return c.Store.FindTokenByAccessHash(ctx, hash)
}

func introspectAccess(ctx context.Context, c *app.Container, cl *core.Client, access string) (map[string]any, bool) {
	claims, err := c.Issuer.Verify(access)
	if err != nil {
		return nil, false
	}
	t, err := lookupTokenByAccess(ctx, c, access)
	if err != nil || t.Revoked || t.ClientID != cl.ClientID {
		return nil, false
	}
	if !time.Now().Before(t.AccessExpiresAt) {
		return nil, false
	}
	return map[string]any{
		"active":     true,
		"scope":      t.Scope,
		"client_id":  t.ClientID,
		"token_type": "Bearer",
		"exp":        claims["exp"],
		"iat":        claims["iat"],
		"sub":        t.AgentID,
		"iss":        c.Issuer.Iss,
		"model":      t.Model,
	}, true
}

func introspectRefresh(ctx context.Context, c *app.Container, cl *core.Client, refresh string) (map[string]any, bool) {
	re, err := c.Store.GetRefreshByHash(ctx, tokens.SHA256Base64URL(refresh))
	if err != nil || re.Revoked || re.ClientID != cl.ClientID {
		return nil, false
	}
	if !time.Now().Before(re.ExpiresAt) {
		return nil, false
	}
	resp := map[string]any{
		"active":     true,
		"token_type": "refresh_token",
		"client_id":  re.ClientID,
		"sub":        re.AgentID,
		"exp":        re.ExpiresAt.Unix(),
	}
	// model y scope viven en el Token ligado.
	if t, err := c.Store.GetToken(ctx, re.TokenID); err == nil {
		resp["model"] = t.Model
		resp["scope"] = t.Scope
	}
	return resp, true
}
