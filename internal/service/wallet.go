package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/ledger"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ConfirmDeposit credits a payment the gateway has confirmed. The caller must already have
// verified the confirmation; replays of the same payment id return the first transaction, and a
// replay naming another user or amount is invalid-argument.
func (s *Service) ConfirmDeposit(ctx context.Context, userID uuid.UUID, paymentID string, amount decimal.Decimal) (models.Transaction, error) {
	var out models.Transaction
	err := s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := ledger.ConfirmDeposit(ctx, tx, userID, paymentID, amount, s.now())
		out = t
		return err
	})
	if err != nil {
		return models.Transaction{}, s.fail(err, uuid.Nil, userID, "confirm_deposit")
	}
	s.log.WithFields(logrus.Fields{
		"caller":     userID,
		"payment_id": paymentID,
		"amount":     amount.String(),
	}).Info("deposit confirmed")
	return out, nil
}

// RequestWithdrawal opens a pending withdrawal for the caller.
func (s *Service) RequestWithdrawal(ctx context.Context, caller uuid.UUID, amount decimal.Decimal, destination, key string) (models.Transaction, error) {
	var out models.Transaction
	err := s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := ledger.RequestWithdrawal(ctx, tx, caller, amount, destination, key, s.now())
		out = t
		return err
	})
	if err != nil {
		return models.Transaction{}, s.fail(err, uuid.Nil, caller, "request_withdrawal")
	}
	return out, nil
}

// ResolveWithdrawal completes or cancels a pending withdrawal. Admins only.
func (s *Service) ResolveWithdrawal(ctx context.Context, caller, txID uuid.UUID, status models.TransactionStatus) (models.Transaction, error) {
	if !s.IsAdmin(caller) {
		return models.Transaction{}, apperr.PermissionDeniedf("admin only")
	}
	var out models.Transaction
	err := s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := ledger.ResolveWithdrawal(ctx, tx, caller, txID, status, s.now())
		out = t
		return err
	})
	if err != nil {
		return models.Transaction{}, s.fail(err, uuid.Nil, caller, "resolve_withdrawal")
	}
	s.log.WithFields(logrus.Fields{
		"caller":         caller,
		"transaction_id": txID,
		"status":         status,
	}).Info("withdrawal resolved")
	return out, nil
}

// GetWallet returns the caller's balances.
func (s *Service) GetWallet(ctx context.Context, caller uuid.UUID) (*models.UserProfile, error) {
	var out *models.UserProfile
	err := s.store.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := ledger.LoadProfile(ctx, tx, caller)
		out = p
		return err
	})
	if err != nil {
		return nil, s.fail(err, uuid.Nil, caller, "get_wallet")
	}
	return out, nil
}
