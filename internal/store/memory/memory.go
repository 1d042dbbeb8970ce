// Package memory implementa core.Repository en memoria. Es la autoridad por
// defecto: proceso único, mutex global, transiciones CAS sobre AuthRequest.
// Un backend durable (store/pg) puede reemplazarlo sin tocar los handlers.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

type Store struct {
	mu       sync.RWMutex
	agents   map[string]*core.Agent        // agent_id → agent
	clients  map[string]*core.Client       // client_id → client
	requests map[string]*core.AuthRequest  // request_id → request
	codes    map[string]string             // code → request_id
	tokens   map[string]*core.Token        // token_id → token
	refresh  map[string]*core.RefreshEntry // sha256(rt) → entry
}

func New() *Store {
	return &Store{
		agents:   make(map[string]*core.Agent),
		clients:  make(map[string]*core.Client),
		requests: make(map[string]*core.AuthRequest),
		codes:    make(map[string]string),
		tokens:   make(map[string]*core.Token),
		refresh:  make(map[string]*core.RefreshEntry),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// SweepExpired remueve AuthRequests vencidos (con su code ligado) y
// RefreshEntries vencidas. Los Tokens expirados quedan; las lecturas los
// rechazan por expires_at.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reqs, refs int
	for id, r := range s.requests {
		if r.ExpiresAt.Before(now) {
			if r.Code != "" {
				delete(s.codes, r.Code)
			}
			delete(s.requests, id)
			reqs++
		}
	}
	for h, re := range s.refresh {
		if re.ExpiresAt.Before(now) {
			delete(s.refresh, h)
			refs++
		}
	}
	return reqs, refs, nil
}
