package memory

import (
	"context"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

func cloneToken(t *core.Token) *core.Token {
	cp := *t
	return &cp
}

func (s *Store) CreateToken(ctx context.Context, t *core.Token, re *core.RefreshEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.TokenID]; ok {
		return core.ErrConflict
	}
	s.tokens[t.TokenID] = cloneToken(t)
	if re != nil {
		cp := *re
		s.refresh[re.TokenHash] = &cp
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID string) (*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return cloneToken(t), nil
}

// FindTokenByAccessHash hace linear scan; a escala core alcanza y el índice
// en cache evita el scan en el camino caliente.
func (s *Store) FindTokenByAccessHash(ctx context.Context, accessHash string) (*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.AccessHash == accessHash {
			return cloneToken(t), nil
		}
	}
	return nil, core.ErrNotFound
}

// RevokeToken marca el token y cascadea al refresh ligado. Revocar dos veces
// converge al mismo estado.
func (s *Store) RevokeToken(ctx context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenID]
	if !ok {
		return core.ErrNotFound
	}
	t.Revoked = true
	if re, ok := s.refresh[t.RefreshHash]; ok {
		re.Revoked = true
	}
	return nil
}

func (s *Store) GetRefreshByHash(ctx context.Context, tokenHash string) (*core.RefreshEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	re, ok := s.refresh[tokenHash]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *re
	return &cp, nil
}

func (s *Store) RebindRefresh(ctx context.Context, tokenHash, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	re, ok := s.refresh[tokenHash]
	if !ok {
		return core.ErrNotFound
	}
	re.TokenID = tokenID
	return nil
}

// RevokeRefresh marca la entrada y cascadea al access ligado.
func (s *Store) RevokeRefresh(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	re, ok := s.refresh[tokenHash]
	if !ok {
		return core.ErrNotFound
	}
	re.Revoked = true
	if t, ok := s.tokens[re.TokenID]; ok {
		t.Revoked = true
	}
	return nil
}
