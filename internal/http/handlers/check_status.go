package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/agentgate/internal/app"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// NewCheckStatusHandler arma el GET /api/check-status que el browser pollea.
// El code se entrega UNA sola vez: la transición authenticated → completed
// es compare-and-set en el store, así que ante polls concurrentes solo uno
// recibe el code (evita fugas por back-navigation o reload).
func NewCheckStatusHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httpx.WriteError(w, http.StatusMethodNotAllowed, "invalid_request", "solo GET", 2400)
			return
		}
		requestID := strings.TrimSpace(r.URL.Query().Get("request_id"))
		if requestID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "request_id requerido", 2401)
			return
		}

		ctx := r.Context()
		req, err := c.Store.GetAuthRequest(ctx, requestID)
		if err != nil {
			if err == core.ErrNotFound {
				httpx.WriteError(w, http.StatusNotFound, "not_found", "authorization request no encontrado", 2402)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2403)
			return
		}

		switch req.Status {
		case core.StatusPending:
			if time.Now().After(req.ExpiresAt) {
				_ = c.Store.ExpireAuthRequest(ctx, requestID)
				httpx.WriteJSON(w, http.StatusOK, map[string]any{
					"status": "error",
					"error":  "authorization request expired",
				})
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "pending"})

		case core.StatusAuthenticated:
			done, err := c.Store.CompleteAuthRequest(ctx, requestID)
			if err != nil {
				if err == core.ErrConflict {
					// Otro poll ganó la carrera: respondemos sin code.
					httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "completed"})
					return
				}
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal error", 2404)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"status":       "authenticated",
				"code":         done.Code,
				"state":        done.State,
				"redirect_uri": callbackURL(done),
			})

		case core.StatusCompleted:
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "completed"})

		case core.StatusExpired:
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"status": "error",
				"error":  "authorization request expired",
			})

		case core.StatusError:
			httpx.WriteJSON(w, http.StatusOK, map[string]any{
				"status": "error",
				"error":  req.Error,
			})

		default:
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "unknown request status", 2405)
		}
	}
}

// callbackURL arma redirect_uri?code=…&state=… para que el browser vuelva
// al callback registrado del client.
func callbackURL(req *core.AuthRequest) string {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return req.RedirectURI
	}
	q := u.Query()
	q.Set("code", req.Code)
	q.Set("state", req.State)
	u.RawQuery = q.Encode()
	return u.String()
}
