package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken es el único error que devuelve Verify: no distinguimos
// entre parseo, firma, issuer o expiración para no servir de oráculo.
var ErrInvalidToken = errors.New("invalid token")

// Issuer firma y verifica access tokens HS256 con clave simétrica.
// JWKS queda vacío mientras la clave sea simétrica.
type Issuer struct {
	Iss       string // "iss"
	Secret    []byte
	AccessTTL time.Duration
}

func NewIssuer(iss string, secret []byte, accessTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &Issuer{Iss: iss, Secret: secret, AccessTTL: accessTTL}
}

// IssueAccess emite el access token del agente:
// {sub, client_id, model, scope, jti, iat, exp, iss}.
// El jti hace único a cada token: iat/exp tienen granularidad de segundo,
// y dos emisiones en el mismo segundo no deben colisionar en firma ni hash.
func (i *Issuer) IssueAccess(sub, clientID, model, scope string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       sub,
		"client_id": clientID,
		"model":     model,
		"scope":     scope,
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// SignRaw firma un MapClaims arbitrario (útil para tests y tooling).
func (i *Issuer) SignRaw(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.Secret)
}

// Verify valida firma, issuer y exp (> now, sin leeway). Devuelve los claims
// o ErrInvalidToken.
func (i *Issuer) Verify(token string) (jwtv5.MapClaims, error) {
	parsed, err := jwtv5.Parse(token,
		func(t *jwtv5.Token) (any, error) { return i.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(i.Iss),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
