package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

func (s *Store) CreateAgent(ctx context.Context, a *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.AgentID]; ok {
		return core.ErrConflict
	}
	cp := *a
	s.agents[a.AgentID] = &cp
	return nil
}

func (s *Store) GetAgent(ctx context.Context, agentID string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (s *Store) DeleteAgent(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agentID]; !ok {
		return core.ErrNotFound
	}
	delete(s.agents, agentID)
	return nil
}
