package memory

import (
	"time"

	"github.com/dropDatabas3/agentgate/internal/cache"
	gocache "github.com/patrickmn/go-cache"
)

type Mem struct{ c *gocache.Cache }

// New crea un cache in-process. El uso principal es el índice
// hash(access)→token_id, así que el janitor corre a la mitad del TTL
// (acotado entre 1m y 10m) para no acumular entradas de tokens vencidos.
func New(defaultTTL time.Duration) cache.Cache {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	janitor := defaultTTL / 2
	if janitor < time.Minute || defaultTTL == gocache.NoExpiration {
		janitor = time.Minute
	} else if janitor > 10*time.Minute {
		janitor = 10 * time.Minute
	}
	return &Mem{c: gocache.New(defaultTTL, janitor)}
}

func (m *Mem) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	return b, true
}

func (m *Mem) Set(k string, v []byte, ttl time.Duration) { m.c.Set(k, v, ttl) }
func (m *Mem) Delete(k string)                           { m.c.Delete(k) }
