package trick

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

type SeatView struct {
	UserID        uuid.UUID `json:"user_id"`
	Seat          int       `json:"seat"`
	Team          int       `json:"team"`
	HandSize      int       `json:"hand_size"`
	Passed        bool      `json:"passed"`
	IsCurrentTurn bool      `json:"is_current_turn"`
}

// View is a trick-taking round as one seat sees it: their own hand, everyone else's card count.
type View struct {
	Round           int                 `json:"round"`
	Phase           models.Phase        `json:"phase"`
	CurrentPlayerID uuid.UUID           `json:"current_player_id"`
	Hand            []models.Card       `json:"hand,omitempty"`
	Seats           []SeatView          `json:"seats"`
	Bids            []models.Bid        `json:"bids"`
	HighBid         int                 `json:"high_bid"`
	HighBidder      uuid.UUID           `json:"high_bidder,omitempty"`
	Trump           string              `json:"trump,omitempty"`
	CurrentTrick    []models.PlayedCard `json:"current_trick"`
	LastTrick       *models.Trick       `json:"last_trick,omitempty"`
	TricksWon       map[int]int         `json:"tricks_won"`
	RoundScores     map[int]int         `json:"round_scores,omitempty"`
	TeamScores      map[int]int         `json:"team_scores"`
	Redeals         int                 `json:"redeals"`
}

func BuildView(g *models.Game, viewer uuid.UUID) *View {
	r := g.Round()
	if r == nil || r.Trick == nil {
		return nil
	}
	tr := r.Trick
	v := &View{
		Round:           r.Number,
		Phase:           r.Phase,
		CurrentPlayerID: r.CurrentTurnPlayerID,
		Hand:            tr.Hands[viewer],
		Bids:            tr.Bids,
		HighBid:         tr.HighBid,
		HighBidder:      tr.HighBidder,
		Trump:           tr.Trump,
		CurrentTrick:    tr.CurrentTrick,
		TricksWon:       tr.TricksWon,
		RoundScores:     tr.RoundScores,
		TeamScores:      g.TeamScores,
		Redeals:         tr.Redeals,
	}
	if n := len(tr.CompletedTricks); n > 0 {
		last := tr.CompletedTricks[n-1]
		v.LastTrick = &last
	}
	for _, p := range g.Players {
		v.Seats = append(v.Seats, SeatView{
			UserID:        p.UserID,
			Seat:          p.Seat,
			Team:          p.Team,
			HandSize:      len(tr.Hands[p.UserID]),
			Passed:        tr.Passed[p.UserID],
			IsCurrentTurn: r.CurrentTurnPlayerID == p.UserID,
		})
	}
	return v
}
