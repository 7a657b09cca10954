// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Application close codes for the game socket.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client did not negotiate the "game" subprotocol.
	GameFinishedError   websocket.StatusCode = 3002 // Game reached a terminal state; no more updates follow.
)
