// internal/models/round.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a game-specific round phase.
type Phase string

const (
	// memory card game
	PhaseSetup    Phase = "setup"
	PhasePlaying  Phase = "playing"
	PhaseScoring  Phase = "scoring"
	PhaseComplete Phase = "complete"

	// trick-taking game
	PhaseBidding        Phase = "bidding"
	PhaseTrumpSelection Phase = "trump_selection"
	PhaseTrickPlaying   Phase = "trick_playing"
	PhaseRoundEnded     Phase = "round_ended"

	// chess
	PhaseChessPlay Phase = "chess_play"
	PhaseChessOver Phase = "chess_over"
)

// ActionRecord is one committed action, kept for audit and replay display.
type ActionRecord struct {
	Index   int            `json:"index"`
	Actor   uuid.UUID      `json:"actor"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Round is the state of one round number. Exactly one variant section is set.
type Round struct {
	Number              int            `json:"number"`
	Phase               Phase          `json:"phase"`
	CurrentTurnPlayerID uuid.UUID      `json:"current_turn_player_id"`
	Actions             []ActionRecord `json:"actions"`

	Cambia *CambiaRound `json:"cambia,omitempty"`
	Trick  *TrickRound  `json:"trick,omitempty"`
}

// Record appends a committed action to the round log.
func (r *Round) Record(actor uuid.UUID, actionType string, payload map[string]any, at time.Time) {
	r.Actions = append(r.Actions, ActionRecord{
		Index:   len(r.Actions),
		Actor:   actor,
		Type:    actionType,
		Payload: payload,
		At:      at,
	})
}

// LastAction returns the most recent record, or nil.
func (r *Round) LastAction() *ActionRecord {
	if len(r.Actions) == 0 {
		return nil
	}
	return &r.Actions[len(r.Actions)-1]
}
