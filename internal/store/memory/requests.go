package memory

import (
	"context"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

func cloneRequest(r *core.AuthRequest) *core.AuthRequest {
	cp := *r
	return &cp
}

func (s *Store) CreateAuthRequest(ctx context.Context, r *core.AuthRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.RequestID]; ok {
		return core.ErrConflict
	}
	s.requests[r.RequestID] = cloneRequest(r)
	return nil
}

func (s *Store) GetAuthRequest(ctx context.Context, requestID string) (*core.AuthRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneRequest(r), nil
}

// MarkAuthenticated: CAS pending → authenticated + bind del code, bajo el
// mismo lock para que el code exista iff el request quedó authenticated.
func (s *Store) MarkAuthenticated(ctx context.Context, requestID, agentID, model, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return core.ErrNotFound
	}
	if r.Status != core.StatusPending {
		return core.ErrConflict
	}
	r.Status = core.StatusAuthenticated
	r.AgentID = agentID
	r.Model = model
	r.Code = code
	s.codes[code] = requestID
	return nil
}

func (s *Store) FailAuthRequest(ctx context.Context, requestID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return core.ErrNotFound
	}
	if r.Status != core.StatusPending {
		return core.ErrConflict
	}
	r.Status = core.StatusError
	r.Error = errMsg
	return nil
}

func (s *Store) ExpireAuthRequest(ctx context.Context, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return core.ErrNotFound
	}
	if r.Status != core.StatusPending {
		return core.ErrConflict
	}
	r.Status = core.StatusExpired
	return nil
}

// CompleteAuthRequest: CAS authenticated → completed. Gana exactamente un
// poll; los siguientes ven ErrConflict y no reciben el code de nuevo.
func (s *Store) CompleteAuthRequest(ctx context.Context, requestID string) (*core.AuthRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return nil, core.ErrNotFound
	}
	if r.Status != core.StatusAuthenticated {
		return nil, core.ErrConflict
	}
	r.Status = core.StatusCompleted
	return cloneRequest(r), nil
}

func (s *Store) ResolveCode(ctx context.Context, code string) (*core.AuthRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	r, ok := s.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneRequest(r), nil
}

// ConsumeCode borra code y AuthRequest juntos (un solo uso).
func (s *Store) ConsumeCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.codes, code)
	delete(s.requests, id)
	return nil
}
