// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/middleware"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/service"
	"github.com/sirupsen/logrus"
)

const wsWriteTimeout = 5 * time.Second

// GameMessage is a frame sent by the client. Type is "action" or "ping". For actions, Action
// names the operation exactly as the HTTP route does and ID is echoed back on the reply.
type GameMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is a frame sent to the client.
//
//	state  - the caller's current view, pushed on connect and after every committed change
//	result - the outcome of one of the caller's actions
//	error  - a rejected frame or action
//	pong   - reply to ping
type ServerMessage struct {
	Type   string        `json:"type"`
	ID     string        `json:"id,omitempty"`
	Game   *service.View `json:"game,omitempty"`
	Result any           `json:"result,omitempty"`
	Error  *errorBody    `json:"error,omitempty"`
}

// GameWSHandler upgrades to a WebSocket for one game. Only seated players may connect. The
// socket streams the caller's view whenever the game changes and accepts actions, which go
// through the same service calls as the HTTP routes.
func (h *Handler) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	caller := middleware.UserID(r.Context())

	view, err := h.svc.GetGame(r.Context(), caller, gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !seated(view, caller) {
		writeError(w, apperr.PermissionDeniedf("not a player in this game"))
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.WithField("game_id", gameID).WithError(err).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "unexpected exit")

	if c.Subprotocol() != "game" {
		c.Close(BadSubprotocolError, "client must use the 'game' subprotocol")
		return
	}
	middleware.LogWebSocketConnect(h.log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe, err := h.svc.Bus().Subscribe(ctx, gameID)
	if err != nil {
		h.log.WithField("game_id", gameID).WithError(err).Error("subscribe to game updates")
		c.Close(websocket.StatusInternalError, "updates unavailable")
		return
	}
	defer unsubscribe()

	if err := send(ctx, c, ServerMessage{Type: "state", Game: view}); err != nil {
		middleware.LogWebSocketDisconnect(h.log, r.RemoteAddr, r.URL.Path, err)
		return
	}

	go h.pushUpdates(ctx, c, caller, gameID, updates)

	err = h.readGameMessages(ctx, c, caller, gameID)
	middleware.LogWebSocketDisconnect(h.log, r.RemoteAddr, r.URL.Path, err)
	if err == nil {
		c.Close(websocket.StatusNormalClosure, "")
	}
}

func seated(v *service.View, caller uuid.UUID) bool {
	for _, p := range v.Players {
		if p.UserID == caller {
			return true
		}
	}
	return false
}

func terminal(v *service.View) bool {
	return v.Status == models.StatusFinished || v.Status == models.StatusCancelled
}

// pushUpdates sends a fresh view each time the bus signals a change. Signals carry no state, so
// bursts collapse into a single reload. Once the game ends the socket is closed.
func (h *Handler) pushUpdates(ctx context.Context, c *websocket.Conn, caller, gameID uuid.UUID, updates <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
		}
		view, err := h.svc.GetGame(ctx, caller, gameID)
		if err != nil {
			if ctx.Err() == nil {
				h.log.WithField("game_id", gameID).WithError(err).Warn("reload game for push")
			}
			continue
		}
		if err := send(ctx, c, ServerMessage{Type: "state", Game: view}); err != nil {
			return
		}
		if terminal(view) {
			c.Close(GameFinishedError, "game over")
			return
		}
	}
}

// readGameMessages serves client frames until the connection closes. A clean close returns nil.
func (h *Handler) readGameMessages(ctx context.Context, c *websocket.Conn, caller, gameID uuid.UUID) error {
	entry := h.log.WithFields(logrus.Fields{"game_id": gameID, "caller": caller})
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			entry.WithError(err).Debug("malformed frame")
			if err := send(ctx, c, errorFrame("", apperr.InvalidArgumentf("invalid JSON"))); err != nil {
				return err
			}
			continue
		}

		var reply ServerMessage
		switch msg.Type {
		case "ping":
			reply = ServerMessage{Type: "pong", ID: msg.ID}
		case "action":
			entry.WithField("action", msg.Action).Debug("websocket action")
			res, err := dispatch(ctx, h.svc, caller, gameID, msg.Action, msg.Payload)
			if err != nil {
				reply = errorFrame(msg.ID, err)
			} else {
				reply = ServerMessage{Type: "result", ID: msg.ID, Result: res}
			}
		default:
			reply = errorFrame(msg.ID, apperr.InvalidArgumentf("unknown message type %q", msg.Type))
		}
		if err := send(ctx, c, reply); err != nil {
			return err
		}
	}
}

func errorFrame(id string, err error) ServerMessage {
	return ServerMessage{
		Type:  "error",
		ID:    id,
		Error: &errorBody{Error: apperr.KindOf(err), Message: apperr.Message(err)},
	}
}

func send(ctx context.Context, c *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
