// Package cache define la abstracción de cache byte-oriented usada como
// índice secundario (hash de access token → token_id). El store sigue siendo
// la autoridad; un miss solo degrada a linear scan.
package cache

import "time"

type Cache interface {
	Get(key string) (value []byte, ok bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
