// internal/ledger/withdrawal.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/shopspring/decimal"
)

// RequestWithdrawal moves amount out of the balance into a pending withdrawal. A user may have
// only one pending request. The rest of the withdrawable amount is cleared with it; cancelling
// the request restores both.
func RequestWithdrawal(ctx context.Context, tx store.Tx, userID uuid.UUID, amount decimal.Decimal, destination, key string, now time.Time) (models.Transaction, error) {
	if !amount.IsPositive() {
		return models.Transaction{}, apperr.InvalidArgumentf("withdrawal must be positive")
	}
	if destination == "" {
		return models.Transaction{}, apperr.InvalidArgumentf("destination required")
	}
	if key == "" {
		return models.Transaction{}, apperr.InvalidArgumentf("idempotency key required")
	}
	// keys are scoped to the requesting user
	scoped := userID.String() + ":" + key
	if rec, err := applied(ctx, tx, scoped, models.TxWithdrawal, uuid.Nil); err != nil {
		return models.Transaction{}, err
	} else if rec != nil {
		return original(ctx, tx, rec)
	}

	p, err := LoadProfile(ctx, tx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	if p.PendingWithdrawalID != uuid.Nil {
		return models.Transaction{}, apperr.FailedPreconditionf("withdrawal %s is still pending", p.PendingWithdrawalID)
	}
	if amount.GreaterThan(p.RealMoneyBalance) {
		return models.Transaction{}, apperr.FailedPreconditionf("insufficient balance")
	}
	if amount.GreaterThan(p.WithdrawableAmount) {
		return models.Transaction{}, apperr.FailedPreconditionf("amount exceeds withdrawable winnings")
	}

	cleared := p.WithdrawableAmount
	p.RealMoneyBalance = p.RealMoneyBalance.Sub(amount)
	p.WithdrawableAmount = decimal.Zero
	t := models.Transaction{
		ID:                  uuid.New(),
		UserID:              userID,
		Type:                models.TxWithdrawal,
		Amount:              amount,
		Status:              models.TxPending,
		IdempotencyKey:      key,
		Destination:         destination,
		BalanceAfter:        p.RealMoneyBalance,
		CreatedAt:           now,
		WithdrawableCleared: cleared,
	}
	p.PendingWithdrawalID = t.ID

	if _, err := claim(ctx, tx, scoped, models.TxWithdrawal, uuid.Nil, []uuid.UUID{t.ID}, now); err != nil {
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

// ResolveWithdrawal marks a pending withdrawal completed or cancelled. Cancelling returns the
// money and the cleared withdrawable amount and records a withdrawal_refund.
func ResolveWithdrawal(ctx context.Context, tx store.Tx, adminID, txID uuid.UUID, status models.TransactionStatus, now time.Time) (models.Transaction, error) {
	if status != models.TxCompleted && status != models.TxCancelled {
		return models.Transaction{}, apperr.InvalidArgumentf("status must be completed or cancelled")
	}
	var t models.Transaction
	err := tx.Get(ctx, store.TransactionKey(txID), &t)
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, apperr.NotFoundf("transaction %s not found", txID)
	}
	if err != nil {
		return models.Transaction{}, fmt.Errorf("read transaction %s: %w", txID, err)
	}
	if t.Type != models.TxWithdrawal {
		return models.Transaction{}, apperr.InvalidArgumentf("transaction %s is not a withdrawal", txID)
	}
	if t.Status != models.TxPending {
		return models.Transaction{}, apperr.FailedPreconditionf("withdrawal %s is already %s", txID, t.Status)
	}

	p, err := LoadProfile(ctx, tx, t.UserID)
	if err != nil {
		return models.Transaction{}, err
	}
	if p.PendingWithdrawalID == t.ID {
		p.PendingWithdrawalID = uuid.Nil
	}

	if status == models.TxCancelled {
		p.RealMoneyBalance = p.RealMoneyBalance.Add(t.Amount)
		p.WithdrawableAmount = p.WithdrawableAmount.Add(t.WithdrawableCleared)
		// wagers placed while the request was pending may have spent cleared winnings
		if p.WithdrawableAmount.GreaterThan(p.RealMoneyBalance) {
			p.WithdrawableAmount = p.RealMoneyBalance
		}
		refund := models.Transaction{
			ID:           uuid.New(),
			UserID:       t.UserID,
			Type:         models.TxWithdrawalRefund,
			Amount:       t.Amount,
			Status:       models.TxCompleted,
			BalanceAfter: p.RealMoneyBalance,
			CreatedAt:    now,
			ResolvedBy:   adminID,
		}
		if err := writeTransaction(ctx, tx, refund); err != nil {
			return models.Transaction{}, err
		}
	}
	if err := writeProfile(ctx, tx, p, now); err != nil {
		return models.Transaction{}, err
	}

	t.Status = status
	ts := now
	t.ResolvedAt = &ts
	t.ResolvedBy = adminID
	if err := tx.Set(ctx, store.TransactionKey(t.ID), t); err != nil {
		return models.Transaction{}, fmt.Errorf("write transaction %s: %w", t.ID, err)
	}
	return t, nil
}
