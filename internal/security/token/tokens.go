package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// GenerateOpaqueToken genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaqueToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para
// guardar hashes de tokens en el store).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewID genera un identificador "prefix" + n chars alfanuméricos
// (ej: agent_mt7XkrbQSKoDLN1l). Usa crypto/rand.
func NewID(prefix string, n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, c := range b {
		sb.WriteByte(idAlphabet[int(c)%len(idAlphabet)])
	}
	return sb.String(), nil
}

// NewRequestID genera un request_id (req_…).
func NewRequestID() (string, error) { return NewID("req_", 16) }

// NewCode genera un authorization code de un solo uso (code_ + 32 bytes).
func NewCode() (string, error) {
	s, err := GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	return "code_" + s, nil
}

// NewRefreshToken genera un refresh token opaco (rt_ + 32 bytes).
func NewRefreshToken() (string, error) {
	s, err := GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	return "rt_" + s, nil
}

// VerifyPKCE valida el binding S256: base64url(SHA256(verifier)) == challenge.
// Cualquier otro method (incluido "plain", prohibido por OAuth 2.1) es false.
func VerifyPKCE(verifier, challenge, method string) bool {
	if method != "S256" || verifier == "" || challenge == "" {
		return false
	}
	return SHA256Base64URL(verifier) == challenge
}
