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
)

// accessIndexKey es la clave del índice secundario access_token → token_id
// que mantiene el cache para lookups O(1) en introspección/revocación.
func accessIndexKey(accessToken string) string {
	return "at:" + tokens.SHA256Base64URL(accessToken)
}

// NewOAuthTokenHandler arma el POST /token con los dos grants soportados.
func NewOAuthTokenHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo POST", 2200)
			return
		}
		params, err := parseOAuthParams(w, r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), 2201)
			return
		}
		grantType := strings.TrimSpace(params.Get("grant_type"))

		switch grantType {

		// ───────────────── authorization_code + PKCE ─────────────────
		case "authorization_code":
			code := strings.TrimSpace(params.Get("code"))
			codeVerifier := strings.TrimSpace(params.Get("code_verifier"))
			clientID, clientSecret := clientCredentials(r, params)

			if code == "" || codeVerifier == "" {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "code y code_verifier son obligatorios", 2203)
				return
			}

			ctx := r.Context()
			cl, ok := authenticateClient(ctx, c, clientID, clientSecret)
			if !ok {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", "client inválido", 2204)
				return
			}
			if !grantAllowed(cl, "authorization_code") {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "grant no habilitado para este client", 2205)
				return
			}

			req, err := c.Store.ResolveCode(ctx, code)
			if err != nil || req.Code != code {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "authorization code inválido", 2206)
				return
			}
			if req.ClientID != cl.ClientID {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "el code pertenece a otro client", 2207)
				return
			}
			// PKCE: un verifier incorrecto también consume el code (un
			// tercer intento con el verifier correcto debe fallar).
			if !tokens.VerifyPKCE(codeVerifier, req.CodeChallenge, req.ChallengeMethod) {
				_ = c.Store.ConsumeCode(ctx, code)
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "PKCE inválido", 2208)
				return
			}
			if time.Now().After(req.ExpiresAt) {
				_ = c.Store.ConsumeCode(ctx, code)
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "authorization code expirado", 2209)
				return
			}
			if req.AgentID == "" || req.Model == "" {
				// No debería pasar: authenticated implica agent/model seteados.
				logger.From(ctx).Error("authenticated request without agent binding",
					logger.AuthReqID(req.RequestID),
				)
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2210)
				return
			}

			access, exp, err := c.Issuer.IssueAccess(req.AgentID, cl.ClientID, req.Model, req.Scope)
			if err != nil {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo emitir el access token", 2211)
				return
			}
			rawRT, err := tokens.NewRefreshToken()
			if err != nil {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo generar refresh", 2212)
				return
			}
			tokenID, err := tokens.NewID("tok_", 16)
			if err != nil {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2213)
				return
			}

			now := time.Now().UTC()
			refreshHash := tokens.SHA256Base64URL(rawRT)
			refreshExp := now.Add(c.RefreshTTL)
			t := &core.Token{
				TokenID:          tokenID,
				AccessToken:      access,
				AccessHash:       tokens.SHA256Base64URL(access),
				RefreshHash:      refreshHash,
				AgentID:          req.AgentID,
				ClientID:         cl.ClientID,
				Model:            req.Model,
				Scope:            req.Scope,
				AccessExpiresAt:  exp,
				RefreshExpiresAt: refreshExp,
				CreatedAt:        now,
			}
			re := &core.RefreshEntry{
				TokenHash: refreshHash,
				TokenID:   tokenID,
				AgentID:   req.AgentID,
				ClientID:  cl.ClientID,
				IssuedAt:  now,
				ExpiresAt: refreshExp,
			}
			if err := c.Store.CreateToken(ctx, t, re); err != nil {
				httpx.IncGrant("authorization_code", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo persistir el token", 2214)
				return
			}
			// El code se borra AL FINAL: si la persistencia fallara antes,
			// el code sigue vivo y el intercambio puede reintentarse.
			if err := c.Store.ConsumeCode(ctx, code); err != nil {
				logger.From(ctx).Warn("consume code failed after token persist", logger.Err(err))
			}
			if c.Cache != nil {
				c.Cache.Set(accessIndexKey(access), []byte(tokenID), c.Issuer.AccessTTL)
			}

			httpx.IncGrant("authorization_code", "ok")
			logger.From(ctx).Info("token issued",
				logger.AgentID(req.AgentID),
				logger.ClientID(cl.ClientID),
				logger.GrantType("authorization_code"),
			)
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"access_token":  access,
				"token_type":    "Bearer",
				"expires_in":    int64(time.Until(exp).Seconds()),
				"refresh_token": rawRT,
				"scope":         req.Scope,
			})

		// ───────────────── refresh_token (sin rotación) ─────────────────
		case "refresh_token":
			refreshToken := strings.TrimSpace(params.Get("refresh_token"))
			clientID, clientSecret := clientCredentials(r, params)

			if refreshToken == "" {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token es obligatorio", 2220)
				return
			}

			ctx := r.Context()
			cl, ok := authenticateClient(ctx, c, clientID, clientSecret)
			if !ok {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_client", "client inválido", 2221)
				return
			}
			if !grantAllowed(cl, "refresh_token") {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "grant no habilitado para este client", 2222)
				return
			}

			hash := tokens.SHA256Base64URL(refreshToken)
			re, err := c.Store.GetRefreshByHash(ctx, hash)
			if err != nil {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "refresh inválido", 2223)
				return
			}
			now := time.Now().UTC()
			if re.Revoked || !now.Before(re.ExpiresAt) || re.ClientID != cl.ClientID {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "refresh revocado, expirado o de otro client", 2224)
				return
			}

			// Recuperar model y scope del token original.
			orig, err := c.Store.GetToken(ctx, re.TokenID)
			if err != nil {
				logger.From(ctx).Error("refresh entry without linked token",
					logger.Err(err),
					logger.ClientID(cl.ClientID),
				)
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2225)
				return
			}

			access, exp, err := c.Issuer.IssueAccess(re.AgentID, cl.ClientID, orig.Model, orig.Scope)
			if err != nil {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo emitir el access token", 2226)
				return
			}
			tokenID, err := tokens.NewID("tok_", 16)
			if err != nil {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2227)
				return
			}

			// Sin rotación: el refresh presentado se reusa y conserva su
			// expires_at. La entrada se re-liga al token nuevo para que una
			// revocación posterior cascadee al access recién emitido.
			t := &core.Token{
				TokenID:          tokenID,
				AccessToken:      access,
				AccessHash:       tokens.SHA256Base64URL(access),
				RefreshHash:      hash,
				AgentID:          re.AgentID,
				ClientID:         cl.ClientID,
				Model:            orig.Model,
				Scope:            orig.Scope,
				AccessExpiresAt:  exp,
				RefreshExpiresAt: re.ExpiresAt,
				CreatedAt:        now,
			}
			if err := c.Store.CreateToken(ctx, t, nil); err != nil {
				httpx.IncGrant("refresh_token", "denied")
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo persistir el token", 2228)
				return
			}
			if err := c.Store.RebindRefresh(ctx, hash, tokenID); err != nil {
				logger.From(ctx).Warn("rebind refresh failed", logger.Err(err))
			}
			if c.Cache != nil {
				c.Cache.Set(accessIndexKey(access), []byte(tokenID), c.Issuer.AccessTTL)
			}

			httpx.IncGrant("refresh_token", "ok")
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"access_token":  access,
				"token_type":    "Bearer",
				"expires_in":    int64(time.Until(exp).Seconds()),
				"refresh_token": refreshToken,
				"scope":         orig.Scope,
			})

		default:
			httpx.WriteError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type no soportado", 2202)
		}
	}
}
