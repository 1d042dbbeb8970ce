package core

import (
	"context"
	"time"
)

// Repository es el único dueño del estado mutable. Toda escritura pasa por
// acá; las implementaciones deben serializar por clave y garantizar que las
// transiciones de AuthRequest sean compare-and-set.
type Repository interface {
	Ping(ctx context.Context) error

	// Agents
	CreateAgent(ctx context.Context, a *Agent) error
	GetAgent(ctx context.Context, agentID string) (*Agent, error)
	ListAgents(ctx context.Context) ([]*Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error

	// Clients
	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, clientID string) (*Client, error)
	ListClients(ctx context.Context) ([]*Client, error)
	UpdateClient(ctx context.Context, c *Client) error
	DeleteClient(ctx context.Context, clientID string) error

	// Authorization requests. Las transiciones fallan con ErrConflict si el
	// estado actual no es el esperado; eso garantiza entrega única del code.
	CreateAuthRequest(ctx context.Context, r *AuthRequest) error
	GetAuthRequest(ctx context.Context, requestID string) (*AuthRequest, error)
	// MarkAuthenticated: pending → authenticated; setea agent/model/code y
	// liga el code al request en la misma operación.
	MarkAuthenticated(ctx context.Context, requestID, agentID, model, code string) error
	// FailAuthRequest: pending → error (política one-shot de credenciales).
	FailAuthRequest(ctx context.Context, requestID, errMsg string) error
	// ExpireAuthRequest: pending → expired (observado en lectura o por sweep).
	ExpireAuthRequest(ctx context.Context, requestID string) error
	// CompleteAuthRequest: authenticated → completed. Devuelve el request tal
	// como estaba al transicionar; solo UNA llamada concurrente gana.
	CompleteAuthRequest(ctx context.Context, requestID string) (*AuthRequest, error)

	// Codes (un solo uso)
	ResolveCode(ctx context.Context, code string) (*AuthRequest, error)
	// ConsumeCode borra el code y su AuthRequest. Se invoca al final de las
	// mutaciones del grant para no huérfanear el efecto del code.
	ConsumeCode(ctx context.Context, code string) error

	// Tokens
	CreateToken(ctx context.Context, t *Token, re *RefreshEntry) error
	GetToken(ctx context.Context, tokenID string) (*Token, error)
	FindTokenByAccessHash(ctx context.Context, accessHash string) (*Token, error)
	// RevokeToken marca el token y cascadea al refresh ligado. Idempotente.
	RevokeToken(ctx context.Context, tokenID string) error

	// Refresh (no rotado)
	GetRefreshByHash(ctx context.Context, tokenHash string) (*RefreshEntry, error)
	// RebindRefresh re-liga la entrada al token recién emitido en un refresh
	// grant, preservando expires_at.
	RebindRefresh(ctx context.Context, tokenHash, tokenID string) error
	// RevokeRefresh marca la entrada y cascadea al access ligado. Idempotente.
	RevokeRefresh(ctx context.Context, tokenHash string) error

	// SweepExpired elimina AuthRequests (y sus codes) y RefreshEntries con
	// expires_at < now. Devuelve cuántos removió de cada uno.
	SweepExpired(ctx context.Context, now time.Time) (requests, refreshes int, err error)
}
