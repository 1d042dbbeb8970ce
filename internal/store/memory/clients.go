package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

func cloneClient(c *core.Client) *core.Client {
	cp := *c
	cp.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	cp.GrantTypes = append([]string(nil), c.GrantTypes...)
	return &cp
}

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ClientID]; ok {
		return core.ErrConflict
	}
	s.clients[c.ClientID] = cloneClient(c)
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneClient(c), nil
}

func (s *Store) ListClients(ctx context.Context) ([]*core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, cloneClient(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// UpdateClient pisa name y redirect URIs (updates parciales los arma el
// handler leyendo el registro actual primero).
func (s *Store) UpdateClient(ctx context.Context, c *core.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.clients[c.ClientID]
	if !ok {
		return core.ErrNotFound
	}
	if c.Name != "" {
		cur.Name = c.Name
	}
	if c.RedirectURIs != nil {
		cur.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[clientID]; !ok {
		return core.ErrNotFound
	}
	delete(s.clients, clientID)
	return nil
}
