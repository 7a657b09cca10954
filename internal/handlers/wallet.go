package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/middleware"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// depositConfirmation is what the gateway posts once a payment settles.
type depositConfirmation struct {
	PaymentID string          `json:"payment_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type withdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

type resolveRequest struct {
	Status models.TransactionStatus `json:"status"`
}

// ConfirmDepositHandler handles POST /wallet/deposits/confirm. It is called by the payment
// gateway, not a player, so it authenticates by signature instead of token.
func (h *Handler) ConfirmDepositHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.payments.Verify(raw, r.Header.Get(SignatureHeader)); err != nil {
		h.log.WithFields(logrus.Fields{"remote": r.RemoteAddr}).WithError(err).Warn("rejected payment confirmation")
		writeError(w, apperr.Wrap(apperr.Unauthenticated, err, "invalid signature"))
		return
	}

	var in depositConfirmation
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&in); err != nil {
		writeError(w, apperr.Wrap(apperr.InvalidArgument, err, "invalid confirmation"))
		return
	}
	if in.UserID == uuid.Nil {
		writeError(w, apperr.InvalidArgumentf("missing user_id"))
		return
	}
	t, err := h.svc.ConfirmDeposit(r.Context(), in.UserID, in.PaymentID, in.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetWalletHandler handles GET /wallet.
func (h *Handler) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetWallet(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RequestWithdrawalHandler handles POST /wallet/withdrawals. The Idempotency-Key header is
// required.
func (h *Handler) RequestWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	var in withdrawalRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.svc.RequestWithdrawal(r.Context(), middleware.UserID(r.Context()), in.Amount, in.Destination, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

// ResolveWithdrawalHandler handles POST /admin/withdrawals/{id}/resolve.
func (h *Handler) ResolveWithdrawalHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var in resolveRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	t, err := h.svc.ResolveWithdrawal(r.Context(), middleware.UserID(r.Context()), id, in.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
