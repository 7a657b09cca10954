// internal/models/cambia.go
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// HandSize is the number of face-down slots each player owns.
const HandSize = 4

// Hand holds a player's face-down cards. A nil slot was matched away.
type Hand [HandSize]*Card

// Occupied returns the number of non-empty slots.
func (h *Hand) Occupied() int {
	n := 0
	for _, c := range h {
		if c != nil {
			n++
		}
	}
	return n
}

// DrawSource says where a held card came from.
type DrawSource string

const (
	SourceDrawPile    DrawSource = "draw_pile"
	SourceDiscardPile DrawSource = "discard_pile"
)

// CardRef points at one slot in one player's hand.
type CardRef struct {
	PlayerID uuid.UUID `json:"player_id"`
	Slot     int       `json:"slot"`
}

// TurnKind tags the variants of TurnState.
type TurnKind string

const (
	TurnIdle            TurnKind = "idle"
	TurnHolding         TurnKind = "holding"
	TurnAwaitingPower   TurnKind = "awaiting_power"
	TurnSeenSwapPending TurnKind = "seen_swap_pending"
)

// TurnState is the per-turn sub-state machine:
//
//	Idle -> Holding -> Idle
//	Idle -> AwaitingPower -> Idle
//	Idle -> AwaitingPower -> SeenSwapPending -> Idle
type TurnState interface {
	Kind() TurnKind
}

// Idle means the current player has not drawn yet.
type Idle struct{}

// Holding is a drawn card with no power pending.
type Holding struct {
	Card   Card       `json:"card"`
	Source DrawSource `json:"source"`
}

// AwaitingPower is a freshly drawn power card the player must skip or resolve.
type AwaitingPower struct {
	Card  Card      `json:"card"`
	Power PowerType `json:"power"`
}

// SeenSwapPending follows the peek step of a seen swap; the player must confirm or decline.
type SeenSwapPending struct {
	Card   Card    `json:"card"`
	First  CardRef `json:"first"`
	Second CardRef `json:"second"`
}

func (Idle) Kind() TurnKind            { return TurnIdle }
func (Holding) Kind() TurnKind         { return TurnHolding }
func (AwaitingPower) Kind() TurnKind   { return TurnAwaitingPower }
func (SeenSwapPending) Kind() TurnKind { return TurnSeenSwapPending }

// TurnSlot stores a TurnState in the document.
type TurnSlot struct {
	State TurnState
}

// Current returns the state, treating the zero slot as Idle.
func (s TurnSlot) Current() TurnState {
	if s.State == nil {
		return Idle{}
	}
	return s.State
}

// Reset returns the slot to Idle.
func (s *TurnSlot) Reset() {
	s.State = Idle{}
}

type turnSlotJSON struct {
	Kind TurnKind        `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s TurnSlot) MarshalJSON() ([]byte, error) {
	st := s.Current()
	out := turnSlotJSON{Kind: st.Kind()}
	if st.Kind() != TurnIdle {
		data, err := json.Marshal(st)
		if err != nil {
			return nil, err
		}
		out.Data = data
	}
	return json.Marshal(out)
}

func (s *TurnSlot) UnmarshalJSON(b []byte) error {
	var in turnSlotJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Kind {
	case TurnIdle, "":
		s.State = Idle{}
	case TurnHolding:
		var v Holding
		if err := json.Unmarshal(in.Data, &v); err != nil {
			return err
		}
		s.State = v
	case TurnAwaitingPower:
		var v AwaitingPower
		if err := json.Unmarshal(in.Data, &v); err != nil {
			return err
		}
		s.State = v
	case TurnSeenSwapPending:
		var v SeenSwapPending
		if err := json.Unmarshal(in.Data, &v); err != nil {
			return err
		}
		s.State = v
	default:
		return fmt.Errorf("unknown turn state kind %q", in.Kind)
	}
	return nil
}

// CambiaRound is the memory/bluff card game section of a round.
type CambiaRound struct {
	Starter              uuid.UUID           `json:"starter"`
	Hands                map[uuid.UUID]*Hand `json:"hands"`
	DrawPile             []Card              `json:"draw_pile"`
	DiscardPile          []Card              `json:"discard_pile"`
	PlayersCompletedPeek []uuid.UUID         `json:"players_completed_peek"`
	CallerID             uuid.UUID           `json:"caller_id,omitempty"`
	Turn                 TurnSlot            `json:"turn"`
	MatchAttempted       bool                `json:"match_attempted"`
	TurnCount            int                 `json:"turn_count"`

	RawScores     map[uuid.UUID]int `json:"raw_scores,omitempty"`
	FinalScores   map[uuid.UUID]int `json:"final_scores,omitempty"`
	CallSucceeded *bool             `json:"call_succeeded,omitempty"`
	RoundWinner   uuid.UUID         `json:"round_winner,omitempty"`
}

// TopDiscard returns the top of the discard pile.
func (r *CambiaRound) TopDiscard() (Card, bool) {
	if len(r.DiscardPile) == 0 {
		return Card{}, false
	}
	return r.DiscardPile[len(r.DiscardPile)-1], true
}

// HasPeeked reports whether userID completed the initial peek.
func (r *CambiaRound) HasPeeked(userID uuid.UUID) bool {
	for _, id := range r.PlayersCompletedPeek {
		if id == userID {
			return true
		}
	}
	return false
}

// Called reports whether someone has called this round.
func (r *CambiaRound) Called() bool {
	return r.CallerID != uuid.Nil
}
