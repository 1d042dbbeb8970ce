// Package pg implementa core.Repository sobre Postgres. Las transiciones
// CAS del modelo en memoria se expresan como UPDATE ... WHERE status = ...;
// la semántica observable es la misma.
package pg

import (
	"context"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/agentgate/migrations/postgres"
)

type Store struct{ pool *pgxpool.Pool }

// New abre el pool y aplica el schema embebido (idempotente).
func New(ctx context.Context, dsn string) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 10
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.applySchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(entries)
	for _, name := range entries {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, int, error) {
	reqTag, err := s.pool.Exec(ctx, `DELETE FROM auth_requests WHERE expires_at < $1`, now)
	if err != nil {
		return 0, 0, err
	}
	refTag, err := s.pool.Exec(ctx, `DELETE FROM refresh_entries WHERE expires_at < $1`, now)
	if err != nil {
		return int(reqTag.RowsAffected()), 0, err
	}
	return int(reqTag.RowsAffected()), int(refTag.RowsAffected()), nil
}
