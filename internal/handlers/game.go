// internal/handlers/game.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/stakes/internal/middleware"
	"github.com/jason-s-yu/stakes/internal/service"
)

// IdempotencyHeader lets clients retry money-moving requests safely.
const IdempotencyHeader = "Idempotency-Key"

// CreateGameHandler handles POST /games.
func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGameInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.CreateGame(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetGameHandler handles GET /games/{id}.
func (h *Handler) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.GetGame(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// JoinGameHandler handles POST /games/{id}/join.
func (h *Handler) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.JoinGame(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// StartGameHandler handles POST /games/{id}/start.
func (h *Handler) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.StartGame(r.Context(), middleware.UserID(r.Context()), id, r.Header.Get(IdempotencyHeader))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// CancelGameHandler handles POST /games/{id}/cancel.
func (h *Handler) CancelGameHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.svc.CancelGame(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ActionHandler handles POST /games/{id}/actions/{action}. The body is the action's payload.
func (h *Handler) ActionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	raw, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := dispatch(r.Context(), h.svc, middleware.UserID(r.Context()), id, r.PathValue("action"), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
