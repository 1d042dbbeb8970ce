package pg

import (
	"context"
	"database/sql"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

const requestCols = `request_id, client_id, redirect_uri, state, code_challenge,
	code_challenge_method, scope, status, code, agent_id, model, error,
	created_at, expires_at`

func scanRequest(row interface{ Scan(...any) error }) (*core.AuthRequest, error) {
	var r core.AuthRequest
	var status string
	var code, agentID, model, errMsg sql.NullString
	err := row.Scan(&r.RequestID, &r.ClientID, &r.RedirectURI, &r.State,
		&r.CodeChallenge, &r.ChallengeMethod, &r.Scope, &status,
		&code, &agentID, &model, &errMsg, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	r.Status = core.AuthStatus(status)
	r.Code = code.String
	r.AgentID = agentID.String
	r.Model = model.String
	r.Error = errMsg.String
	return &r, nil
}

func (s *Store) CreateAuthRequest(ctx context.Context, r *core.AuthRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_requests (request_id, client_id, redirect_uri, state,
			code_challenge, code_challenge_method, scope, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.RequestID, r.ClientID, r.RedirectURI, r.State,
		r.CodeChallenge, r.ChallengeMethod, r.Scope, string(r.Status),
		r.CreatedAt, r.ExpiresAt)
	return mapErr(err)
}

func (s *Store) GetAuthRequest(ctx context.Context, requestID string) (*core.AuthRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestCols+` FROM auth_requests WHERE request_id = $1`, requestID)
	return scanRequest(row)
}

// casUpdate ejecuta una transición condicionada por status y desambigua
// rows=0 entre not-found y conflicto de estado.
func (s *Store) casUpdate(ctx context.Context, requestID, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM auth_requests WHERE request_id = $1)`, requestID).
		Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return core.ErrNotFound
	}
	return core.ErrConflict
}

func (s *Store) MarkAuthenticated(ctx context.Context, requestID, agentID, model, code string) error {
	return s.casUpdate(ctx, requestID, `
		UPDATE auth_requests
		SET status = 'authenticated', agent_id = $2, model = $3, code = $4
		WHERE request_id = $1 AND status = 'pending'`,
		requestID, agentID, model, code)
}

func (s *Store) FailAuthRequest(ctx context.Context, requestID, errMsg string) error {
	return s.casUpdate(ctx, requestID, `
		UPDATE auth_requests SET status = 'error', error = $2
		WHERE request_id = $1 AND status = 'pending'`,
		requestID, errMsg)
}

func (s *Store) ExpireAuthRequest(ctx context.Context, requestID string) error {
	return s.casUpdate(ctx, requestID, `
		UPDATE auth_requests SET status = 'expired'
		WHERE request_id = $1 AND status = 'pending'`,
		requestID)
}

func (s *Store) CompleteAuthRequest(ctx context.Context, requestID string) (*core.AuthRequest, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE auth_requests SET status = 'completed'
		WHERE request_id = $1 AND status = 'authenticated'
		RETURNING `+requestCols, requestID)
	r, err := scanRequest(row)
	if err == core.ErrNotFound {
		// ¿no existe o perdió la carrera?
		if _, gerr := s.GetAuthRequest(ctx, requestID); gerr == nil {
			return nil, core.ErrConflict
		}
		return nil, core.ErrNotFound
	}
	return r, err
}

func (s *Store) ResolveCode(ctx context.Context, code string) (*core.AuthRequest, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+requestCols+` FROM auth_requests WHERE code = $1`, code)
	return scanRequest(row)
}

func (s *Store) ConsumeCode(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM auth_requests WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
