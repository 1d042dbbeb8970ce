package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dropDatabas3/agentgate/internal/store/core"
)

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return core.ErrConflict
	}
	return err
}

func (s *Store) CreateAgent(ctx context.Context, a *core.Agent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agents (agent_id, secret_hash, user_email, user_name, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		a.AgentID, a.SecretHash, a.UserEmail, a.UserName, a.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetAgent(ctx context.Context, agentID string) (*core.Agent, error) {
	var a core.Agent
	err := s.pool.QueryRow(ctx, `
		SELECT agent_id, secret_hash, user_email, user_name, created_at
		FROM agents WHERE agent_id = $1`, agentID).
		Scan(&a.AgentID, &a.SecretHash, &a.UserEmail, &a.UserName, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]*core.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, secret_hash, user_email, user_name, created_at
		FROM agents ORDER BY agent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Agent
	for rows.Next() {
		var a core.Agent
		if err := rows.Scan(&a.AgentID, &a.SecretHash, &a.UserEmail, &a.UserName, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAgent(ctx context.Context, agentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE agent_id = $1`, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO clients (client_id, secret_hash, name, redirect_uris, grant_types, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ClientID, c.SecretHash, c.Name, c.RedirectURIs, c.GrantTypes, c.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*core.Client, error) {
	var c core.Client
	err := s.pool.QueryRow(ctx, `
		SELECT client_id, secret_hash, name, redirect_uris, grant_types, created_at
		FROM clients WHERE client_id = $1`, clientID).
		Scan(&c.ClientID, &c.SecretHash, &c.Name, &c.RedirectURIs, &c.GrantTypes, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]*core.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT client_id, secret_hash, name, redirect_uris, grant_types, created_at
		FROM clients ORDER BY client_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ClientID, &c.SecretHash, &c.Name, &c.RedirectURIs, &c.GrantTypes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateClient(ctx context.Context, c *core.Client) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE clients
		SET name = COALESCE(NULLIF($2, ''), name),
		    redirect_uris = COALESCE($3, redirect_uris)
		WHERE client_id = $1`,
		c.ClientID, c.Name, c.RedirectURIs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
