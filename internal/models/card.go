// internal/models/card.go
package models

// Card is an immutable playing card. Ownership moves between containers; cards are never copied
// into two places at once.
type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// String renders a card as rank followed by suit, e.g. "KH".
func (c Card) String() string {
	return c.Rank + c.Suit
}

// SameFace reports whether two cards have the same suit and rank.
func (c Card) SameFace(o Card) bool {
	return c.Suit == o.Suit && c.Rank == o.Rank
}

// PowerType is the one-time effect granted by drawing certain ranks in the memory card game.
type PowerType string

const (
	PowerNone         PowerType = ""
	PowerPeekOwn      PowerType = "peek_own"
	PowerPeekOpponent PowerType = "peek_opponent"
	PowerBlindSwap    PowerType = "blind_swap"
	PowerSeenSwap     PowerType = "seen_swap"
)
