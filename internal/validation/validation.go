package validation

import (
	"net/url"
	"regexp"
)

// Email rules: algo@algo.algo, sin espacios. Chequeo sintáctico únicamente;
// la entregabilidad no es problema nuestro.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidURL exige URL absoluta (scheme + host).
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// Identifier rules: [A-Za-z0-9_-], largo >= 3. Aplica a agent_id y client_id.
var identifierRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,}$`)

func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// ValidChallengeMethod acepta exactamente "S256" (OAuth 2.1 prohíbe "plain").
func ValidChallengeMethod(s string) bool {
	return s == "S256"
}

// RedirectAllowed compara por igualdad estricta contra la lista del client.
// Sin prefix matching ni normalización de trailing slash.
func RedirectAllowed(uri string, allowed []string) bool {
	for _, a := range allowed {
		if a == uri {
			return true
		}
	}
	return false
}
