package password_test

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/agentgate/internal/security/password"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	phc, err := password.Hash(password.Default, "s3cr3t-agente")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$") {
		t.Fatalf("formato PHC inesperado: %q", phc)
	}
	// salt y dk son segmentos separados: el PHC tiene exactamente 6 campos
	if got := len(strings.Split(phc, "$")); got != 6 {
		t.Fatalf("PHC con %d campos, esperaba 6: %q", got, phc)
	}
	if !password.Verify("s3cr3t-agente", phc) {
		t.Fatal("el secreto correcto debería verificar")
	}
	if password.Verify("otro-secreto", phc) {
		t.Fatal("un secreto distinto no debería verificar")
	}
}

// El PHC emitido por Hash con parámetros no-default también debe verificar:
// Verify recupera m, t, p y el largo del dk desde el propio string.
func TestVerifyReadsParamsFromPHC(t *testing.T) {
	p := password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 2, KeyLen: 16}
	phc, err := password.Hash(p, "clave-chica")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.Contains(phc, "$m=8192,t=1,p=2$") {
		t.Fatalf("segmento de parámetros inesperado: %q", phc)
	}
	if !password.Verify("clave-chica", phc) {
		t.Fatal("el secreto correcto debería verificar con params no-default")
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, _ := password.Hash(password.Default, "mismo")
	b, _ := password.Hash(password.Default, "mismo")
	if a == b {
		t.Fatal("dos hashes del mismo secreto deben diferir (salt aleatorio)")
	}
}

func TestVerifyGarbage(t *testing.T) {
	for _, phc := range []string{
		"",
		"no-es-un-hash",
		"$argon2id$v=19$m=65536,t=3,p=1$saltinvalido",
		"$bcrypt$whatever",
		"$argon2i$v=19$m=65536,t=3,p=1$c2FsdA$ZGs",  // variante incorrecta
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$ZGs", // versión incorrecta
		"$argon2id$v=19$m=abc,t=3,p=1$c2FsdA$ZGs",   // parámetro no numérico
		"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$ZGs$extra",
		"$argon2id$v=19$m=65536,t=3,p=1$!!!$ZGs",
	} {
		if password.Verify("x", phc) {
			t.Fatalf("Verify debería ser false para %q", phc)
		}
	}
}
