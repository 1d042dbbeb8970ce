package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/agentgate/internal/app"
	"github.com/dropDatabas3/agentgate/internal/security/password"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// parseOAuthParams acepta application/x-www-form-urlencoded (RFC 6749) y
// application/json (conveniencia para SDKs de agentes). Devuelve los
// parámetros normalizados como url.Values.
func parseOAuthParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10) // 64KB

	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/json") {
		defer r.Body.Close()
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			return nil, fmt.Errorf("json inválido")
		}
		vals := url.Values{}
		for k, v := range m {
			if s, ok := v.(string); ok {
				vals.Set(k, s)
			}
		}
		return vals, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("form inválido")
	}
	return r.PostForm, nil
}

// clientCredentials extrae (client_id, client_secret) del request:
// client_secret_basic tiene precedencia sobre client_secret_post.
func clientCredentials(r *http.Request, params url.Values) (string, string) {
	if id, secret, ok := r.BasicAuth(); ok {
		// RFC 6749 §2.3.1: los valores van form-urlencoded dentro del Basic
		if d, err := url.QueryUnescape(id); err == nil {
			id = d
		}
		if d, err := url.QueryUnescape(secret); err == nil {
			secret = d
		}
		return id, secret
	}
	return strings.TrimSpace(params.Get("client_id")), params.Get("client_secret")
}

// authenticateClient resuelve y verifica el client. Falla cerrado: cualquier
// problema (no existe, hash inválido, secret incorrecto) es un no.
func authenticateClient(ctx context.Context, c *app.Container, clientID, clientSecret string) (*core.Client, bool) {
	if clientID == "" || clientSecret == "" {
		return nil, false
	}
	cl, err := c.Store.GetClient(ctx, clientID)
	if err != nil {
		return nil, false
	}
	if !password.Verify(clientSecret, cl.SecretHash) {
		return nil, false
	}
	return cl, true
}

// grantAllowed chequea que el client tenga habilitado el grant_type.
func grantAllowed(cl *core.Client, grant string) bool {
	for _, g := range cl.GrantTypes {
		if g == grant {
			return true
		}
	}
	return false
}
