package core

import "time"

// Agent es un principal no humano con su propio par de credenciales.
// El secret solo existe en texto plano en la respuesta de creación.
type Agent struct {
	AgentID    string    `json:"agent_id"`
	SecretHash string    `json:"-"`
	UserEmail  string    `json:"user_email"`
	UserName   string    `json:"user_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Client es un sitio web registrado (relying party).
type Client struct {
	ClientID     string    `json:"client_id"`
	SecretHash   string    `json:"-"`
	Name         string    `json:"name"`
	RedirectURIs []string  `json:"redirect_uris"`
	GrantTypes   []string  `json:"grant_types"`
	CreatedAt    time.Time `json:"created_at"`
}

type AuthStatus string

const (
	StatusPending       AuthStatus = "pending"
	StatusAuthenticated AuthStatus = "authenticated"
	StatusCompleted     AuthStatus = "completed"
	StatusExpired       AuthStatus = "expired"
	StatusError         AuthStatus = "error"
)

// AuthRequest es el registro server-side de una autorización en vuelo.
// Transiciones monotónicas:
//
//	pending → authenticated → completed
//	pending → error | expired
//
// completed/expired/error son terminales.
type AuthRequest struct {
	RequestID       string     `json:"request_id"`
	ClientID        string     `json:"client_id"`
	RedirectURI     string     `json:"redirect_uri"`
	State           string     `json:"state"`
	CodeChallenge   string     `json:"code_challenge"`
	ChallengeMethod string     `json:"code_challenge_method"`
	Scope           string     `json:"scope"`
	Status          AuthStatus `json:"status"`
	Code            string     `json:"-"`
	AgentID         string     `json:"agent_id,omitempty"`
	Model           string     `json:"model,omitempty"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// Token agrupa un access JWT y su refresh opaco (guardado como hash).
type Token struct {
	TokenID          string    `json:"token_id"`
	AccessToken      string    `json:"-"`
	AccessHash       string    `json:"-"`
	RefreshHash      string    `json:"-"`
	AgentID          string    `json:"agent_id"`
	ClientID         string    `json:"client_id"`
	Model            string    `json:"model"`
	Scope            string    `json:"scope"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	Revoked          bool      `json:"revoked"`
}

// RefreshEntry se indexa por hash del refresh token; el valor rt_… nunca
// toca el store. No rotamos: la entrada se reusa entre refresh grants y
// se re-liga al Token más reciente.
type RefreshEntry struct {
	TokenHash string    `json:"-"`
	TokenID   string    `json:"token_id"`
	AgentID   string    `json:"agent_id"`
	ClientID  string    `json:"client_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}
