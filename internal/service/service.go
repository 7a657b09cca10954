// internal/service/service.go
package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/cache"
	"github.com/jason-s-yu/stakes/internal/chess"
	"github.com/jason-s-yu/stakes/internal/deck"
	"github.com/jason-s-yu/stakes/internal/ledger"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/sirupsen/logrus"
)

// Options tune a Service. Zero values fall back to production defaults.
type Options struct {
	Fees   *ledger.Fees
	Admins []uuid.UUID
	Engine chess.RuleEngine
	Bus    cache.Bus

	// Now and NewRand pin the clock and the shuffle source in tests.
	Now     func() time.Time
	NewRand func() deck.Shuffler
}

// Service is the action API. Every method is one store transaction: it re-reads the game,
// validates the caller and the state, applies one transition and writes the result back.
// Notifications go out only after the commit.
type Service struct {
	store   store.Store
	log     *logrus.Logger
	fees    ledger.Fees
	admins  map[uuid.UUID]bool
	engine  chess.RuleEngine
	bus     cache.Bus
	now     func() time.Time
	newRand func() deck.Shuffler
}

func New(st store.Store, logger *logrus.Logger, opts Options) *Service {
	s := &Service{
		store:   st,
		log:     logger,
		fees:    ledger.DefaultFees(),
		admins:  make(map[uuid.UUID]bool, len(opts.Admins)),
		engine:  opts.Engine,
		bus:     opts.Bus,
		now:     opts.Now,
		newRand: opts.NewRand,
	}
	for _, id := range opts.Admins {
		s.admins[id] = true
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if opts.Fees != nil {
		s.fees = *opts.Fees
	}
	if s.engine == nil {
		s.engine = chess.NotnilEngine{}
	}
	if s.bus == nil {
		s.bus = cache.NewLocal()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newRand == nil {
		s.newRand = secureRand
	}
	return s
}

// secureRand seeds a ChaCha8 stream from the OS so deals cannot be predicted.
func secureRand() deck.Shuffler {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("read random seed: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// IsAdmin reports whether userID may resolve withdrawals and cancel running games.
func (s *Service) IsAdmin(userID uuid.UUID) bool {
	return s.admins[userID]
}

// Bus exposes the notification bus for subscribers.
func (s *Service) Bus() cache.Bus {
	return s.bus
}

// errUnchanged lets a mutation abort without writing when there is nothing to do.
var errUnchanged = errors.New("unchanged")

// mutation is the body of a game action. It may change g in place; g is written back when it
// returns nil.
type mutation[T any] func(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) (T, error)

// mutate runs fn against the freshly read game inside one transaction. A finished game whose
// stakes were taken is settled in the same transaction.
func mutate[T any](ctx context.Context, s *Service, gameID, caller uuid.UUID, action string, fn mutation[T]) (T, error) {
	var (
		out     T
		records []cache.ActionRecord
		changed bool
	)
	err := s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		g, err := loadGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		before := cache.ActionCounts(g)
		now := s.now()

		res, err := fn(ctx, tx, g, now)
		out, changed = res, false
		if errors.Is(err, errUnchanged) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := settleIfFinished(ctx, tx, g, now); err != nil {
			return err
		}
		g.UpdatedAt = now
		if err := tx.Set(ctx, store.GameKey(g.ID), g); err != nil {
			return fmt.Errorf("write game %s: %w", g.ID, err)
		}
		records = cache.RecordsSince(g, before)
		changed = true
		return nil
	})
	if err != nil {
		var zero T
		return zero, s.fail(err, gameID, caller, action)
	}
	if changed {
		s.notify(ctx, gameID, records)
	}
	return out, nil
}

// settleKey is the deterministic settlement key for a game; every path that ends a game uses it
// so a second ending can never pay twice.
func settleKey(gameID uuid.UUID) string {
	return "settle:" + gameID.String()
}

func startKey(gameID uuid.UUID) string {
	return "start:" + gameID.String()
}

func settleIfFinished(ctx context.Context, tx store.Tx, g *models.Game, now time.Time) error {
	if !g.IsTerminal() || !g.WagersDebited || g.PayoutProcessed || g.Outcome == nil {
		return nil
	}
	_, err := ledger.SettleOnEnd(ctx, tx, g, settleKey(g.ID), now)
	return err
}

func loadGame(ctx context.Context, tx store.Tx, id uuid.UUID) (*models.Game, error) {
	var g models.Game
	if err := tx.Get(ctx, store.GameKey(id), &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("game %s not found", id)
		}
		return nil, fmt.Errorf("read game %s: %w", id, err)
	}
	return &g, nil
}

func (s *Service) notify(ctx context.Context, gameID uuid.UUID, records []cache.ActionRecord) {
	if err := s.bus.Notify(context.WithoutCancel(ctx), gameID, records); err != nil {
		s.log.WithFields(logrus.Fields{
			"game_id": gameID,
			"records": len(records),
		}).WithError(err).Warn("post-commit notify failed")
	}
}

// fail converts err to an apperr at the action boundary. Store sentinels get their kind;
// anything unclassified is internal and logged with its detail.
func (s *Service) fail(err error, gameID, caller uuid.UUID, action string) error {
	entry := s.log.WithFields(logrus.Fields{
		"game_id": gameID,
		"caller":  caller,
		"action":  action,
	})

	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		entry.WithField("kind", ae.Kind).Debug(ae.Message)
		return err
	case errors.Is(err, store.ErrNotFound):
		entry.Debug(err)
		return apperr.Wrap(apperr.NotFound, err, "not found")
	case errors.Is(err, store.ErrAlreadyExists):
		entry.Debug(err)
		return apperr.Wrap(apperr.AlreadyExists, err, "already exists")
	case errors.Is(err, store.ErrConflict):
		entry.WithError(err).Warn("transaction retries exhausted")
		return apperr.Wrap(apperr.Internal, err, "too much contention, retry")
	default:
		entry.WithError(err).Error("action failed")
		return apperr.Wrap(apperr.Internal, err, "internal error")
	}
}
