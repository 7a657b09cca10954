// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

// SlotView is one hand slot as seen by a viewer. Face-down cards carry no rank or suit.
type SlotView struct {
	Slot  int  `json:"slot"`
	Empty bool `json:"empty"`
}

// PlayerView is one player's public state.
type PlayerView struct {
	UserID          uuid.UUID  `json:"user_id"`
	Seat            int        `json:"seat"`
	TotalScore      int        `json:"total_score"`
	SuccessfulCalls int        `json:"successful_calls"`
	HandSize        int        `json:"hand_size"`
	Slots           []SlotView `json:"slots"`
	HasPeeked       bool       `json:"has_peeked"`
	HasCalled       bool       `json:"has_called"`
	IsCurrentTurn   bool       `json:"is_current_turn"`
	FinalScore      *int       `json:"final_score,omitempty"`
}

// View is the obfuscated round state for one viewer.
type View struct {
	Round           int                     `json:"round"`
	Phase           models.Phase            `json:"phase"`
	CurrentPlayerID uuid.UUID               `json:"current_player_id"`
	DrawPileSize    int                     `json:"draw_pile_size"`
	DiscardSize     int                     `json:"discard_size"`
	DiscardTop      *models.Card            `json:"discard_top,omitempty"`
	CallerID        uuid.UUID               `json:"caller_id,omitempty"`
	Turn            models.TurnKind         `json:"turn"`
	PendingPower    models.PowerType        `json:"pending_power,omitempty"`
	HeldCard        *models.Card            `json:"held_card,omitempty"`
	Players         []PlayerView            `json:"players"`
	RoundWinner     uuid.UUID               `json:"round_winner,omitempty"`
	CallSucceeded   *bool                   `json:"call_succeeded,omitempty"`
	PendingSwap     *models.SeenSwapPending `json:"pending_swap,omitempty"`
}

// BuildView renders the current round for viewer. Only the turn holder sees the card they hold;
// hand contents are never included, and final scores appear once the round is scored.
func BuildView(g *models.Game, viewer uuid.UUID) *View {
	r := g.Round()
	if r == nil || r.Cambia == nil {
		return nil
	}
	cr := r.Cambia
	v := &View{
		Round:           r.Number,
		Phase:           r.Phase,
		CurrentPlayerID: r.CurrentTurnPlayerID,
		DrawPileSize:    len(cr.DrawPile),
		DiscardSize:     len(cr.DiscardPile),
		CallerID:        cr.CallerID,
		Turn:            cr.Turn.Current().Kind(),
		RoundWinner:     cr.RoundWinner,
		CallSucceeded:   cr.CallSucceeded,
	}
	if top, ok := cr.TopDiscard(); ok {
		v.DiscardTop = &top
	}

	switch st := cr.Turn.Current().(type) {
	case models.Holding:
		if st.Source == models.SourceDiscardPile || viewer == r.CurrentTurnPlayerID {
			c := st.Card
			v.HeldCard = &c
		}
	case models.AwaitingPower:
		v.PendingPower = st.Power
		// a power card is public once it is on the table
		c := st.Card
		v.HeldCard = &c
	case models.SeenSwapPending:
		v.PendingPower = models.PowerSeenSwap
		if viewer == r.CurrentTurnPlayerID {
			pending := st
			v.PendingSwap = &pending
		}
	}

	for _, p := range g.Players {
		hand := cr.Hands[p.UserID]
		pv := PlayerView{
			UserID:          p.UserID,
			Seat:            p.Seat,
			TotalScore:      p.TotalScore,
			SuccessfulCalls: p.SuccessfulCalls,
			HasPeeked:       cr.HasPeeked(p.UserID),
			HasCalled:       cr.CallerID == p.UserID,
			IsCurrentTurn:   r.CurrentTurnPlayerID == p.UserID,
		}
		if hand != nil {
			pv.HandSize = hand.Occupied()
			for i, c := range hand {
				pv.Slots = append(pv.Slots, SlotView{Slot: i, Empty: c == nil})
			}
		}
		if s, ok := cr.FinalScores[p.UserID]; ok {
			score := s
			pv.FinalScore = &score
		}
		v.Players = append(v.Players, pv)
	}
	return v
}
