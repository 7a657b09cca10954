// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/stakes/internal/middleware"
	"github.com/jason-s-yu/stakes/internal/service"
	"github.com/sirupsen/logrus"
)

// Handler exposes the service over HTTP and WebSocket.
type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	verify   middleware.Verifier
	payments PaymentVerifier
}

func New(svc *service.Service, logger *logrus.Logger, verify middleware.Verifier, payments PaymentVerifier) *Handler {
	return &Handler{svc: svc, log: logger, verify: verify, payments: payments}
}

// Routes builds the mux. Every player route requires a session token; the deposit webhook is
// authenticated by its signature instead.
func (h *Handler) Routes() http.Handler {
	authed := middleware.Authenticate(h.log, h.verify)
	mux := http.NewServeMux()

	mux.Handle("POST /games", authed(http.HandlerFunc(h.CreateGameHandler)))
	mux.Handle("GET /games/{id}", authed(http.HandlerFunc(h.GetGameHandler)))
	mux.Handle("POST /games/{id}/join", authed(http.HandlerFunc(h.JoinGameHandler)))
	mux.Handle("POST /games/{id}/start", authed(http.HandlerFunc(h.StartGameHandler)))
	mux.Handle("POST /games/{id}/cancel", authed(http.HandlerFunc(h.CancelGameHandler)))
	mux.Handle("POST /games/{id}/actions/{action}", authed(http.HandlerFunc(h.ActionHandler)))
	mux.Handle("GET /games/{id}/ws", authed(http.HandlerFunc(h.GameWSHandler)))

	mux.Handle("GET /wallet", authed(http.HandlerFunc(h.GetWalletHandler)))
	mux.Handle("POST /wallet/withdrawals", authed(http.HandlerFunc(h.RequestWithdrawalHandler)))
	mux.Handle("POST /admin/withdrawals/{id}/resolve", authed(http.HandlerFunc(h.ResolveWithdrawalHandler)))
	mux.HandleFunc("POST /wallet/deposits/confirm", h.ConfirmDepositHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.LogMiddleware(h.log)(mux)
}
