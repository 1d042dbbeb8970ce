package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/agentgate/internal/http/middlewares"
	"github.com/dropDatabas3/agentgate/internal/rate"
)

// AdminRegistrar es lo que exponen los handlers de administración para
// colgarse del subrouter chi.
type AdminRegistrar interface {
	Register(r chi.Router)
}

// MuxDeps agrupa los handlers que NewMux necesita. Se construyen en main
// con el Container y acá solo se cablean.
type MuxDeps struct {
	Authorize   stdhttp.Handler
	AgentAuth   stdhttp.Handler
	CheckStatus stdhttp.Handler
	Token       stdhttp.Handler
	Introspect  stdhttp.Handler
	Revoke      stdhttp.Handler
	Discovery   stdhttp.Handler
	JWKS        stdhttp.Handler
	Readyz      stdhttp.Handler
	Metrics     stdhttp.Handler

	Admin []AdminRegistrar

	Limiter rate.Limiter
}

// NewMux arma el router completo con la cadena de middlewares.
func NewMux(d MuxDeps) stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	// Health
	mux.HandleFunc("/healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Readyz != nil {
		mux.Handle("/readyz", d.Readyz)
	}
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}

	// Discovery
	mux.Handle("/.well-known/oauth-authorization-server", d.Discovery)
	mux.Handle("/.well-known/jwks.json", d.JWKS)

	// Flujo de autorización
	mux.Handle("/authorize", d.Authorize)
	mux.Handle("/api/agent/authenticate", WithNoStore(d.AgentAuth))
	mux.Handle("/api/check-status", WithNoStore(d.CheckStatus))

	// Superficie de tokens: todas las respuestas llevan no-store (RFC 6749 §5.1)
	mux.Handle("/token", WithNoStore(d.Token))
	mux.Handle("/introspect", WithNoStore(d.Introspect))
	mux.Handle("/revoke", WithNoStore(d.Revoke))

	// Admin: subrouter chi montado bajo /api/admin/.
	// La superficie es deliberadamente no autenticada en el core; un
	// deployment real la frontea con un control plane autorizado.
	if len(d.Admin) > 0 {
		admin := chi.NewRouter()
		for _, reg := range d.Admin {
			reg.Register(admin)
		}
		mux.Handle("/api/admin/", stdhttp.StripPrefix("/api/admin", admin))
	}

	// Cadena exterior: recover primero, luego request-id para que el resto
	// (logging, errores) ya tenga el header puesto.
	return middlewares.Chain(mux,
		WithRecover,
		middlewares.WithRequestID(),
		WithSecurityHeaders,
		WithMetrics,
		middlewares.WithLogging(),
		func(next stdhttp.Handler) stdhttp.Handler { return WithRateLimit(next, d.Limiter) },
	)
}
