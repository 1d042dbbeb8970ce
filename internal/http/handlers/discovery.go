package handlers

import (
	"net/http"
	"strings"

	httpx "github.com/dropDatabas3/agentgate/internal/http"
)

// NewDiscoveryHandler arma el GET /.well-known/oauth-authorization-server
// (RFC 8414). El documento es estático por proceso, se arma una vez.
func NewDiscoveryHandler(issuer, publicURL string) http.HandlerFunc {
	base := strings.TrimRight(publicURL, "/")
	doc := map[string]any{
		"issuer":                 issuer,
		"authorization_endpoint": base + "/authorize",
		"token_endpoint":         base + "/token",
		"introspection_endpoint": base + "/introspect",
		"revocation_endpoint":    base + "/revoke",
		"jwks_uri":               base + "/.well-known/jwks.json",

		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"code_challenge_methods_supported":      []string{"S256"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_post", "client_secret_basic"},
		"scopes_supported":                      []string{"openid", "profile", "email"},
		"token_endpoint_auth_signing_alg_values_supported": []string{"HS256"},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, doc)
	}
}

// NewJWKSHandler arma el GET /.well-known/jwks.json. Con HS256 la clave es
// simétrica y no se publica: el set queda vacío.
func NewJWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"keys": []any{}})
	}
}
