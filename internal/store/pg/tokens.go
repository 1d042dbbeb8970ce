package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

const tokenCols = `token_id, access_token, access_hash, refresh_hash, agent_id,
	client_id, model, scope, access_expires_at, refresh_expires_at, created_at, revoked`

func scanToken(row pgx.Row) (*core.Token, error) {
	var t core.Token
	err := row.Scan(&t.TokenID, &t.AccessToken, &t.AccessHash, &t.RefreshHash,
		&t.AgentID, &t.ClientID, &t.Model, &t.Scope,
		&t.AccessExpiresAt, &t.RefreshExpiresAt, &t.CreatedAt, &t.Revoked)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// CreateToken persiste el Token y (si viene) su RefreshEntry en una tx.
func (s *Store) CreateToken(ctx context.Context, t *core.Token, re *core.RefreshEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO tokens (token_id, access_token, access_hash, refresh_hash,
			agent_id, client_id, model, scope,
			access_expires_at, refresh_expires_at, created_at, revoked)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.TokenID, t.AccessToken, t.AccessHash, t.RefreshHash,
		t.AgentID, t.ClientID, t.Model, t.Scope,
		t.AccessExpiresAt, t.RefreshExpiresAt, t.CreatedAt, t.Revoked); err != nil {
		return mapErr(err)
	}
	if re != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO refresh_entries (token_hash, token_id, agent_id, client_id,
				issued_at, expires_at, revoked)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			re.TokenHash, re.TokenID, re.AgentID, re.ClientID,
			re.IssuedAt, re.ExpiresAt, re.Revoked); err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetToken(ctx context.Context, tokenID string) (*core.Token, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE token_id = $1`, tokenID))
}

func (s *Store) FindTokenByAccessHash(ctx context.Context, accessHash string) (*core.Token, error) {
	return scanToken(s.pool.QueryRow(ctx,
		`SELECT `+tokenCols+` FROM tokens WHERE access_hash = $1`, accessHash))
}

func (s *Store) RevokeToken(ctx context.Context, tokenID string) error {
	tag, err := s.pool.Exec(ctx, `
		WITH tok AS (
			UPDATE tokens SET revoked = true WHERE token_id = $1
			RETURNING refresh_hash
		)
		UPDATE refresh_entries SET revoked = true
		WHERE token_hash IN (SELECT refresh_hash FROM tok)`, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// pudo haber token sin refresh; verificar existencia
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM tokens WHERE token_id = $1)`, tokenID).
			Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return core.ErrNotFound
		}
	}
	return nil
}

func (s *Store) GetRefreshByHash(ctx context.Context, tokenHash string) (*core.RefreshEntry, error) {
	var re core.RefreshEntry
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, token_id, agent_id, client_id, issued_at, expires_at, revoked
		FROM refresh_entries WHERE token_hash = $1`, tokenHash).
		Scan(&re.TokenHash, &re.TokenID, &re.AgentID, &re.ClientID,
			&re.IssuedAt, &re.ExpiresAt, &re.Revoked)
	if err != nil {
		return nil, mapErr(err)
	}
	return &re, nil
}

func (s *Store) RebindRefresh(ctx context.Context, tokenHash, tokenID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE refresh_entries SET token_id = $2 WHERE token_hash = $1`, tokenHash, tokenID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) RevokeRefresh(ctx context.Context, tokenHash string) error {
	tag, err := s.pool.Exec(ctx, `
		WITH re AS (
			UPDATE refresh_entries SET revoked = true WHERE token_hash = $1
			RETURNING token_id
		)
		UPDATE tokens SET revoked = true
		WHERE token_id IN (SELECT token_id FROM re)`, tokenHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM refresh_entries WHERE token_hash = $1)`, tokenHash).
			Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return core.ErrNotFound
		}
	}
	return nil
}
