// internal/models/trick.go
package models

import "github.com/google/uuid"

// Bid is one bidding-phase decision. Amount is zero for a pass.
type Bid struct {
	PlayerID uuid.UUID `json:"player_id"`
	Amount   int       `json:"amount,omitempty"`
	Pass     bool      `json:"pass,omitempty"`
}

// PlayedCard is a card laid on the table in a trick.
type PlayedCard struct {
	PlayerID uuid.UUID `json:"player_id"`
	Card     Card      `json:"card"`
}

// Trick is a completed trick.
type Trick struct {
	Cards  []PlayedCard `json:"cards"`
	Winner uuid.UUID    `json:"winner"`
}

// TrickRound is the team trick-taking game section of a round.
type TrickRound struct {
	Starter uuid.UUID            `json:"starter"`
	Hands   map[uuid.UUID][]Card `json:"hands"`
	Bids    []Bid                `json:"bids"`
	Passed  map[uuid.UUID]bool   `json:"passed"`
	Redeals int                  `json:"redeals"`

	HighBid    int       `json:"high_bid"`
	HighBidder uuid.UUID `json:"high_bidder,omitempty"`
	Trump      string    `json:"trump,omitempty"`

	CurrentTrick    []PlayedCard `json:"current_trick"`
	CompletedTricks []Trick      `json:"completed_tricks"`
	TricksWon       map[int]int  `json:"tricks_won"`
	RoundScores     map[int]int  `json:"round_scores,omitempty"`
}

// LedSuit is the suit of the first card of the trick in progress.
func (r *TrickRound) LedSuit() string {
	if len(r.CurrentTrick) == 0 {
		return ""
	}
	return r.CurrentTrick[0].Card.Suit
}
