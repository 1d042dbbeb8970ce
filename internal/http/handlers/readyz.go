package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/observability/logger"
)

// NewReadyzHandler chequea store, cache (opcional) y hace un self-check de
// firma/verificación del issuer.
func NewReadyzHandler(c *app.Container, checkCache func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1) Store
		if err := c.Store.Ping(r.Context()); err != nil {
			logger.From(r.Context()).Error("store unavailable", logger.Err(err))
			httpx.WriteError(w, http.StatusServiceUnavailable, "server_error", "store unavailable", 2001)
			return
		}

		// 2) Self-check HS256: firmar y verificar un JWT efímero en memoria
		signed, _, err := c.Issuer.IssueAccess("selfcheck", "readyz", "none", "")
		if err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "server_error", "no se pudo firmar self-check", 2004)
			return
		}
		claims, err := c.Issuer.Verify(signed)
		if err != nil {
			httpx.WriteError(w, http.StatusServiceUnavailable, "server_error", "self-check: verificación falló", 2005)
			return
		}
		if sub, _ := claims["sub"].(string); sub != "selfcheck" {
			httpx.WriteError(w, http.StatusServiceUnavailable, "server_error", "self-check: sub inesperado", 2006)
			return
		}

		// 3) Cache (opcional)
		if checkCache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checkCache(ctx); err != nil {
				logger.From(r.Context()).Error("cache unavailable", logger.Err(err))
				httpx.WriteError(w, http.StatusServiceUnavailable, "server_error", "cache unavailable", 2003)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
