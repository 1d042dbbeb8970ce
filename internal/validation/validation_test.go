package validation_test

import (
	"testing"

	"github.com/dropDatabas3/agentgate/internal/validation"
)

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user+tag@example.org", "x_y@sub.dominio.com"}
	for _, v := range valid {
		if !validation.ValidEmail(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	invalid := []string{"", "sin-arroba", "a@b", "a @b.co", "@b.co", "a@.co "}
	for _, v := range invalid {
		if validation.ValidEmail(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidURL(t *testing.T) {
	valid := []string{"https://app.example.com/cb", "http://localhost:3000/callback"}
	for _, v := range valid {
		if !validation.ValidURL(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	invalid := []string{"", "/relative/path", "no-scheme.com/cb", "://x"}
	for _, v := range invalid {
		if validation.ValidURL(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidIdentifier(t *testing.T) {
	valid := []string{"abc", "agent_A1-b2", "client_xyz"}
	for _, v := range valid {
		if !validation.ValidIdentifier(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
	invalid := []string{"", "ab", "con espacio", "tiene!simbolo", "ñandú"}
	for _, v := range invalid {
		if validation.ValidIdentifier(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestValidChallengeMethod(t *testing.T) {
	if !validation.ValidChallengeMethod("S256") {
		t.Fatal("S256 debe ser válido")
	}
	for _, v := range []string{"", "s256", "plain", "S512"} {
		if validation.ValidChallengeMethod(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestRedirectAllowed(t *testing.T) {
	allowed := []string{"https://a.com/cb", "https://a.com/cb2"}
	if !validation.RedirectAllowed("https://a.com/cb", allowed) {
		t.Fatal("match exacto debe pasar")
	}
	// igualdad estricta: sin normalización de trailing slash ni prefijos
	for _, v := range []string{"https://a.com/cb/", "https://a.com/cb3", "https://a.com", "HTTPS://A.COM/CB"} {
		if validation.RedirectAllowed(v, allowed) {
			t.Fatalf("expected not allowed: %q", v)
		}
	}
}
