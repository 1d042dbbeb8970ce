// Package store agrupa las implementaciones de core.Repository y el sweeper
// periódico de TTLs.
package store

import (
	"context"
	"time"

	"github.com/dropDatabas3/agentgate/internal/observability/logger"
	"github.com/dropDatabas3/agentgate/internal/store/core"
)

// Sweeper remueve periódicamente AuthRequests y RefreshEntries vencidos.
// Es un bound blando: los lectores igual chequean expires_at en uso.
type Sweeper struct {
	Repo     core.Repository
	Interval time.Duration
}

func NewSweeper(repo core.Repository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{Repo: repo, Interval: interval}
}

// Run bloquea hasta que ctx se cancele.
func (s *Sweeper) Run(ctx context.Context) error {
	log := logger.Named("sweeper")
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			reqs, refs, err := s.Repo.SweepExpired(ctx, now)
			if err != nil {
				log.Warn("sweep failed", logger.Err(err))
				continue
			}
			if reqs > 0 || refs > 0 {
				log.Info("swept expired entries",
					logger.Count(reqs+refs),
					logger.Op("sweep"),
				)
			}
		}
	}
}
