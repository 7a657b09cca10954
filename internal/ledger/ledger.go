// internal/ledger/ledger.go
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

var hundred = decimal.NewFromInt(100)

// Fees holds the house cut, as a percentage of the pool, per kind of win.
type Fees struct {
	PlatformPercent decimal.Decimal
	TeamPercent     decimal.Decimal
}

// DefaultFees keeps 5% of single-winner pools and nothing from team pools.
func DefaultFees() Fees {
	return Fees{PlatformPercent: decimal.NewFromInt(5), TeamPercent: decimal.Zero}
}

// PercentFor returns the fee fixed onto a new game of variant v.
func (f Fees) PercentFor(v models.Variant) decimal.Decimal {
	if v == models.VariantTrick {
		return f.TeamPercent
	}
	return f.PlatformPercent
}

// IdempotencyKey is the document key of the record marking (key, type, game) as applied.
func IdempotencyKey(key string, typ models.TransactionType, gameID uuid.UUID) store.Key {
	sum := blake2b.Sum256([]byte(key + "|" + string(typ) + "|" + gameID.String()))
	return store.Key{Collection: models.CollectionIdempotency, ID: hex.EncodeToString(sum[:])}
}

// claim inserts the idempotency record. It reports false, with no error, when the triple was
// already applied by an earlier committed transaction.
func claim(ctx context.Context, tx store.Tx, key string, typ models.TransactionType, gameID uuid.UUID, txIDs []uuid.UUID, now time.Time) (bool, error) {
	rec := models.IdempotencyRecord{
		Key:            key,
		Type:           typ,
		GameID:         gameID,
		TransactionIDs: txIDs,
		CreatedAt:      now,
	}
	err := tx.Create(ctx, IdempotencyKey(key, typ, gameID), rec)
	if errors.Is(err, store.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create idempotency record: %w", err)
	}
	return true, nil
}

func applied(ctx context.Context, tx store.Tx, key string, typ models.TransactionType, gameID uuid.UUID) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := tx.Get(ctx, IdempotencyKey(key, typ, gameID), &rec)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency record: %w", err)
	}
	return &rec, nil
}

// DebitApplied reports whether the stakes for gameID were already taken under key.
func DebitApplied(ctx context.Context, tx store.Tx, key string, gameID uuid.UUID) (bool, error) {
	rec, err := applied(ctx, tx, key, models.TxWagerDebit, gameID)
	return rec != nil, err
}

// LoadProfile reads a user's wallet. A user who never deposited has an empty one.
func LoadProfile(ctx context.Context, tx store.Tx, userID uuid.UUID) (*models.UserProfile, error) {
	p := &models.UserProfile{UserID: userID}
	err := tx.Get(ctx, store.ProfileKey(userID), p)
	if errors.Is(err, store.ErrNotFound) {
		return &models.UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", userID, err)
	}
	return p, nil
}

// debit lowers the balance, refusing to go below zero. The withdrawable part never exceeds
// what is left.
func debit(p *models.UserProfile, amount decimal.Decimal) error {
	if p.RealMoneyBalance.LessThan(amount) {
		return apperr.FailedPreconditionf("insufficient balance for user %s", p.UserID)
	}
	p.RealMoneyBalance = p.RealMoneyBalance.Sub(amount)
	if p.WithdrawableAmount.GreaterThan(p.RealMoneyBalance) {
		p.WithdrawableAmount = p.RealMoneyBalance
	}
	return nil
}

func credit(p *models.UserProfile, amount decimal.Decimal, withdrawable bool) {
	p.RealMoneyBalance = p.RealMoneyBalance.Add(amount)
	if withdrawable {
		p.WithdrawableAmount = p.WithdrawableAmount.Add(amount)
	}
}

func writeProfile(ctx context.Context, tx store.Tx, p *models.UserProfile, now time.Time) error {
	p.UpdatedAt = now
	if err := tx.Set(ctx, store.ProfileKey(p.UserID), p); err != nil {
		return fmt.Errorf("write profile %s: %w", p.UserID, err)
	}
	return nil
}

func writeTransaction(ctx context.Context, tx store.Tx, t models.Transaction) error {
	if err := tx.Create(ctx, store.TransactionKey(t.ID), t); err != nil {
		return fmt.Errorf("write transaction %s: %w", t.ID, err)
	}
	return nil
}

// DebitOnStart takes every player's stake, all or nothing. It is a no-op once the game's
// WagersDebited flag is set or the key was already applied.
func DebitOnStart(ctx context.Context, tx store.Tx, g *models.Game, key string, now time.Time) ([]models.Transaction, error) {
	if key == "" {
		return nil, apperr.InvalidArgumentf("idempotency key required")
	}
	if g.WagersDebited {
		return nil, nil
	}
	if g.WagerPerPlayer.IsNegative() {
		return nil, apperr.InvalidArgumentf("negative wager")
	}

	profiles := make([]*models.UserProfile, 0, len(g.Players))
	for _, pl := range g.Players {
		p, err := LoadProfile(ctx, tx, pl.UserID)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	// every balance is checked before any is touched
	for _, p := range profiles {
		if p.RealMoneyBalance.LessThan(g.WagerPerPlayer) {
			return nil, apperr.FailedPreconditionf("insufficient balance for user %s", p.UserID)
		}
	}

	var txs []models.Transaction
	if g.WagerPerPlayer.IsPositive() {
		for _, p := range profiles {
			if err := debit(p, g.WagerPerPlayer); err != nil {
				return nil, err
			}
			txs = append(txs, models.Transaction{
				ID:             uuid.New(),
				UserID:         p.UserID,
				Type:           models.TxWagerDebit,
				Amount:         g.WagerPerPlayer,
				Status:         models.TxCompleted,
				RelatedGameID:  g.ID,
				IdempotencyKey: key,
				BalanceAfter:   p.RealMoneyBalance,
				CreatedAt:      now,
			})
		}
	}

	fresh, err := claim(ctx, tx, key, models.TxWagerDebit, g.ID, ids(txs), now)
	if err != nil {
		return nil, err
	}
	if !fresh {
		g.WagersDebited = true
		return nil, nil
	}
	for i, p := range profiles {
		if g.WagerPerPlayer.IsPositive() {
			if err := writeProfile(ctx, tx, p, now); err != nil {
				return nil, err
			}
			if err := writeTransaction(ctx, tx, txs[i]); err != nil {
				return nil, err
			}
		}
	}
	g.WagersDebited = true
	return txs, nil
}

// payout is one credit computed from an outcome.
type payout struct {
	userID       uuid.UUID
	amount       decimal.Decimal
	typ          models.TransactionType
	withdrawable bool
}

// payouts computes who receives what for outcome. A draw refunds every stake. A single winner
// takes the pool less the fee. A winning team splits the pool less the fee evenly, with any
// remainder cent going to the first member.
func payouts(g *models.Game, outcome *models.Outcome) ([]payout, error) {
	pool := g.Pool()
	fee := pool.Mul(g.FeePercent).Div(hundred).Round(2)
	net := pool.Sub(fee)

	switch outcome.Kind {
	case models.OutcomeDraw:
		out := make([]payout, 0, len(g.Players))
		for _, p := range g.Players {
			out = append(out, payout{userID: p.UserID, amount: g.WagerPerPlayer, typ: models.TxRefund})
		}
		return out, nil
	case models.OutcomeWinner:
		if !g.IsParticipant(outcome.WinnerID) {
			return nil, apperr.InvalidArgumentf("winner %s is not in this game", outcome.WinnerID)
		}
		return []payout{{userID: outcome.WinnerID, amount: net, typ: models.TxPayout, withdrawable: true}}, nil
	case models.OutcomeTeam:
		members := g.TeamMembers(outcome.WinningTeam)
		if len(members) == 0 {
			return nil, apperr.InvalidArgumentf("team %d has no members", outcome.WinningTeam)
		}
		n := decimal.NewFromInt(int64(len(members)))
		share := net.Div(n).RoundDown(2)
		// the odd cents go to the first member in seat order
		rest := net.Sub(share.Mul(n))
		out := make([]payout, 0, len(members))
		for i, id := range members {
			amount := share
			if i == 0 {
				amount = amount.Add(rest)
			}
			out = append(out, payout{userID: id, amount: amount, typ: models.TxPayout, withdrawable: true})
		}
		return out, nil
	default:
		return nil, apperr.InvalidArgumentf("unknown outcome %q", outcome.Kind)
	}
}

// SettleOnEnd pays out g.Outcome exactly once. A retry with the same key after settlement is a
// no-op; a settlement under a different key is rejected as already-exists.
func SettleOnEnd(ctx context.Context, tx store.Tx, g *models.Game, key string, now time.Time) ([]models.Transaction, error) {
	if key == "" {
		return nil, apperr.InvalidArgumentf("idempotency key required")
	}
	if !g.WagersDebited {
		return nil, apperr.FailedPreconditionf("wagers were never debited for game %s", g.ID)
	}
	if g.PayoutProcessed {
		rec, err := applied(ctx, tx, key, models.TxPayout, g.ID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return nil, nil
		}
		return nil, apperr.AlreadyExistsf("game %s already settled", g.ID)
	}
	if g.Outcome == nil {
		return nil, apperr.FailedPreconditionf("game %s has no outcome", g.ID)
	}

	pays, err := payouts(g, g.Outcome)
	if err != nil {
		return nil, err
	}

	var txs []models.Transaction
	var profiles []*models.UserProfile
	for _, pay := range pays {
		if !pay.amount.IsPositive() {
			continue
		}
		p, err := LoadProfile(ctx, tx, pay.userID)
		if err != nil {
			return nil, err
		}
		credit(p, pay.amount, pay.withdrawable)
		profiles = append(profiles, p)
		txs = append(txs, models.Transaction{
			ID:             uuid.New(),
			UserID:         pay.userID,
			Type:           pay.typ,
			Amount:         pay.amount,
			Status:         models.TxCompleted,
			RelatedGameID:  g.ID,
			IdempotencyKey: key,
			BalanceAfter:   p.RealMoneyBalance,
			CreatedAt:      now,
		})
	}

	fresh, err := claim(ctx, tx, key, models.TxPayout, g.ID, ids(txs), now)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, apperr.AlreadyExistsf("settlement key %q already used for game %s", key, g.ID)
	}
	for i, p := range profiles {
		if err := writeProfile(ctx, tx, p, now); err != nil {
			return nil, err
		}
		if err := writeTransaction(ctx, tx, txs[i]); err != nil {
			return nil, err
		}
	}
	g.PayoutProcessed = true
	ts := now
	g.PayoutTimestamp = &ts
	return txs, nil
}

// ConfirmDeposit credits a gateway-confirmed payment once per payment id. A repeat returns the
// original transaction; a repeat naming another user or amount is rejected. Deposits are not
// withdrawable.
func ConfirmDeposit(ctx context.Context, tx store.Tx, userID uuid.UUID, paymentID string, amount decimal.Decimal, now time.Time) (models.Transaction, error) {
	if paymentID == "" {
		return models.Transaction{}, apperr.InvalidArgumentf("payment id required")
	}
	if !amount.IsPositive() {
		return models.Transaction{}, apperr.InvalidArgumentf("deposit must be positive")
	}
	if rec, err := applied(ctx, tx, paymentID, models.TxDeposit, uuid.Nil); err != nil {
		return models.Transaction{}, err
	} else if rec != nil {
		t, err := original(ctx, tx, rec)
		if err != nil {
			return models.Transaction{}, err
		}
		if t.UserID != userID || !t.Amount.Equal(amount) {
			return models.Transaction{}, apperr.InvalidArgumentf("payment %s was already confirmed with different details", paymentID)
		}
		return t, nil
	}

	p, err := LoadProfile(ctx, tx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	credit(p, amount, false)
	t := models.Transaction{
		ID:             uuid.New(),
		UserID:         userID,
		Type:           models.TxDeposit,
		Amount:         amount,
		Status:         models.TxCompleted,
		IdempotencyKey: paymentID,
		BalanceAfter:   p.RealMoneyBalance,
		CreatedAt:      now,
	}
	if _, err := claim(ctx, tx, paymentID, models.TxDeposit, uuid.Nil, []uuid.UUID{t.ID}, now); err != nil {
		return models.Transaction{}, err
	}
	if err := writeProfile(ctx, tx, p, now); err != nil {
		return models.Transaction{}, err
	}
	if err := writeTransaction(ctx, tx, t); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

func original(ctx context.Context, tx store.Tx, rec *models.IdempotencyRecord) (models.Transaction, error) {
	if len(rec.TransactionIDs) == 0 {
		return models.Transaction{}, apperr.New(apperr.Internal, "idempotency record %q has no transaction", rec.Key)
	}
	var t models.Transaction
	if err := tx.Get(ctx, store.TransactionKey(rec.TransactionIDs[0]), &t); err != nil {
		return models.Transaction{}, fmt.Errorf("read transaction %s: %w", rec.TransactionIDs[0], err)
	}
	return t, nil
}

func ids(txs []models.Transaction) []uuid.UUID {
	out := make([]uuid.UUID, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}
