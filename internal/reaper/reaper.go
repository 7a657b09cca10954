// internal/reaper/reaper.go
package reaper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Expirer cancels and refunds a game that has not changed since cutoff.
type Expirer interface {
	Expire(ctx context.Context, gameID uuid.UUID, cutoff time.Time, reason string) (bool, error)
}

// Reaper periodically cancels games nobody finished: lobbies that never started and matches
// nobody has touched for a while. Refunds go through the same ledger path as any cancel.
type Reaper struct {
	Store        store.Store
	Games        Expirer
	Log          *logrus.Logger
	Interval     time.Duration
	WaitingTTL   time.Duration
	AbandonedTTL time.Duration
	Concurrency  int
	// BatchSize caps how many games one sweep lists per status group.
	BatchSize int
	Now       func() time.Time
}

func (r *Reaper) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Run sweeps every Interval until ctx ends.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	r.Log.WithField("interval", r.Interval).Info("reaper started")
	for {
		select {
		case <-ctx.Done():
			r.Log.Info("reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			n, err := r.Sweep(ctx)
			if err != nil {
				r.Log.WithError(err).Warn("reaper sweep failed")
				continue
			}
			if n > 0 {
				r.Log.WithField("cancelled", n).Info("reaper sweep done")
			}
		}
	}
}

// Sweep runs one pass and returns how many games it cancelled. A game that fails to expire is
// logged and left for the next pass.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	groups := []struct {
		statuses []models.Status
		cutoff   time.Time
		reason   string
	}{
		{[]models.Status{models.StatusWaiting}, now.Add(-r.WaitingTTL), "expired before start"},
		{[]models.Status{models.StatusPlaying, models.StatusScoring}, now.Add(-r.AbandonedTTL), "abandoned"},
	}

	var cancelled atomic.Int64
	for _, grp := range groups {
		in := make([]string, len(grp.statuses))
		for i, st := range grp.statuses {
			in[i] = string(st)
		}
		ids, err := r.Store.List(ctx, models.CollectionGames, store.Query{
			Field:         "status",
			In:            in,
			UpdatedBefore: grp.cutoff,
			Limit:         r.BatchSize,
		})
		if err != nil {
			return int(cancelled.Load()), fmt.Errorf("list stale games: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(r.Concurrency, 1))
		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			reason, cutoff := grp.reason, grp.cutoff
			g.Go(func() error {
				ok, err := r.Games.Expire(gctx, id, cutoff, reason)
				if err != nil {
					r.Log.WithField("game_id", id).WithError(err).Warn("failed to expire game")
					return nil
				}
				if ok {
					cancelled.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(cancelled.Load()), err
		}
	}
	return int(cancelled.Load()), nil
}
