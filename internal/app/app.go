// Package app define el Container de dependencias compartidas entre handlers.
package app

import (
	"time"

	"github.com/dropDatabas3/agentgate/internal/cache"
	"github.com/dropDatabas3/agentgate/internal/config"
	"github.com/dropDatabas3/agentgate/internal/jwt"
	"github.com/dropDatabas3/agentgate/internal/rate"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// Container agrupa las dependencias que los handlers necesitan.
// Se construye una vez en main.go y se pasa por inyección.
type Container struct {
	Cfg    *config.Config
	Store  core.Repository
	Issuer *jwt.Issuer
	Cache  cache.Cache
	Limit  rate.Limiter

	// RefreshTTL aplica a los refresh tokens emitidos por /token.
	RefreshTTL time.Duration
	// RequestTTL aplica a las authorization requests creadas por /authorize.
	RequestTTL time.Duration
	// DefaultScope se asigna cuando /authorize llega sin scope.
	DefaultScope string
}
