package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/agentgate/internal/security/token"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// NewOAuthRevokeHandler arma el POST /revoke (RFC 7009). Con client
// autenticado la respuesta es SIEMPRE 200 {} aunque el token no exista o
// pertenezca a otro client: una fachada de éxito evita el probing. El 401
// previo a la autenticación es una desviación deliberada del RFC para no
// aceptar probing anónimo.
func NewOAuthRevokeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo POST", 2600)
			return
		}
		params, err := parseOAuthParams(w, r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), 2601)
			return
		}
		clientID, clientSecret := clientCredentials(r, params)
		ctx := r.Context()
		cl, ok := authenticateClient(ctx, c, clientID, clientSecret)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", "client inválido", 2602)
			return
		}

		tokenStr := strings.TrimSpace(params.Get("token"))
		hint := strings.TrimSpace(params.Get("token_type_hint"))

		if tokenStr != "" {
			if hint == "refresh_token" {
				if !revokeAsRefresh(ctx, c, cl, tokenStr) {
					_ = revokeAsAccess(ctx, c, cl, tokenStr)
				}
			} else {
				if !revokeAsAccess(ctx, c, cl, tokenStr) {
					_ = revokeAsRefresh(ctx, c, cl, tokenStr)
				}
			}
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{})
	}
}

// revokeAsAccess intenta revocar el string como access token. La revocación
// cascadea al refresh ligado dentro del store.
func revokeAsAccess(ctx context.Context, c *app.Container, cl *core.Client, access string) bool {
	t, err := lookupTokenByAccess(ctx, c, access)
	if err != nil || t.ClientID != cl.ClientID {
		return false
	}
	if err := c.Store.RevokeToken(ctx, t.TokenID); err != nil {
		logger.From(ctx).Warn("revoke token failed", logger.Err(err))
		return false
	}
	return true
}

// revokeAsRefresh intenta revocar el string como refresh token, cascadeando
// al access ligado.
func revokeAsRefresh(ctx context.Context, c *app.Container, cl *core.Client, refresh string) bool {
	hash := tokens.SHA256Base64URL(refresh)
	re, err := c.Store.GetRefreshByHash(ctx, hash)
	if err != nil || re.ClientID != cl.ClientID {
		return false
	}
	if err := c.Store.RevokeRefresh(ctx, hash); err != nil {
		logger.From(ctx).Warn("revoke refresh failed", logger.Err(err))
		return false
	}
	return true
}
