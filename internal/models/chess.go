// internal/models/chess.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// ChessState is the persisted chess position and clocks. Move legality lives in the rules engine.
type ChessState struct {
	FEN           string              `json:"fen"`
	Moves         []string            `json:"moves"`
	WhiteID       uuid.UUID           `json:"white_id"`
	BlackID       uuid.UUID           `json:"black_id"`
	RemainingMs   map[uuid.UUID]int64 `json:"remaining_ms"`
	IncrementMs   int64               `json:"increment_ms"`
	LastMoveAt    time.Time           `json:"last_move_at"`
	DrawOfferedBy uuid.UUID           `json:"draw_offered_by,omitempty"`
}

// Opponent returns the other side's user id.
func (c *ChessState) Opponent(userID uuid.UUID) uuid.UUID {
	if userID == c.WhiteID {
		return c.BlackID
	}
	return c.WhiteID
}
