package chess

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

// View is the chess state with clocks evaluated at the moment of the read.
type View struct {
	FEN           string              `json:"fen"`
	Moves         []string            `json:"moves"`
	WhiteID       uuid.UUID           `json:"white_id"`
	BlackID       uuid.UUID           `json:"black_id"`
	ToMove        uuid.UUID           `json:"to_move"`
	RemainingMs   map[uuid.UUID]int64 `json:"remaining_ms"`
	DrawOfferedBy uuid.UUID           `json:"draw_offered_by,omitempty"`
}

// BuildView returns nil before the game starts.
func BuildView(g *models.Game, now time.Time) *View {
	cs := g.Chess
	if cs == nil {
		return nil
	}
	v := &View{
		FEN:           cs.FEN,
		Moves:         cs.Moves,
		WhiteID:       cs.WhiteID,
		BlackID:       cs.BlackID,
		RemainingMs:   make(map[uuid.UUID]int64, 2),
		DrawOfferedBy: cs.DrawOfferedBy,
	}
	if r := g.Round(); r != nil && r.Phase == models.PhaseChessPlay {
		v.ToMove = r.CurrentTurnPlayerID
	}
	for _, id := range []uuid.UUID{cs.WhiteID, cs.BlackID} {
		v.RemainingMs[id] = max(Remaining(g, id, now), 0)
	}
	return v
}
