// internal/models/ledger.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies an audit record.
type TransactionType string

const (
	TxWagerDebit       TransactionType = "wager_debit"
	TxPayout           TransactionType = "payout"
	TxRefund           TransactionType = "refund"
	TxDeposit          TransactionType = "deposit"
	TxWithdrawal       TransactionType = "withdrawal"
	TxWithdrawalRefund TransactionType = "withdrawal_refund"
)

// TransactionStatus is the state of an audit record. Only withdrawals are ever pending.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxCancelled TransactionStatus = "cancelled"
)

// Transaction is an append-only audit entry for one balance movement.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Type           TransactionType   `json:"type"`
	Amount         decimal.Decimal   `json:"amount"`
	Status         TransactionStatus `json:"status"`
	RelatedGameID  uuid.UUID         `json:"related_game_id,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Destination    string            `json:"destination,omitempty"`
	BalanceAfter   decimal.Decimal   `json:"balance_after"`
	CreatedAt      time.Time         `json:"created_at"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy     uuid.UUID         `json:"resolved_by,omitempty"`

	// WithdrawableCleared is the withdrawable amount a withdrawal request zeroed, restored if
	// the request is cancelled.
	WithdrawableCleared decimal.Decimal `json:"withdrawable_cleared"`
}

// UserProfile holds a user's money. WithdrawableAmount is the part sourced from winnings.
type UserProfile struct {
	UserID              uuid.UUID       `json:"user_id"`
	RealMoneyBalance    decimal.Decimal `json:"real_money_balance"`
	WithdrawableAmount  decimal.Decimal `json:"withdrawable_amount"`
	PendingWithdrawalID uuid.UUID       `json:"pending_withdrawal_id,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// IdempotencyRecord marks that (key, type, game) has been applied. Its document id is a digest
// of the triple, so inserting it twice collides.
type IdempotencyRecord struct {
	Key            string          `json:"key"`
	Type           TransactionType `json:"type"`
	GameID         uuid.UUID       `json:"game_id,omitempty"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	CreatedAt      time.Time       `json:"created_at"`
}
