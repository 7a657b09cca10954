// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document collections used by the store.
const (
	CollectionGames        = "games"
	CollectionProfiles     = "profiles"
	CollectionTransactions = "transactions"
	CollectionIdempotency  = "idempotency"
)

// Variant identifies which state machine owns a game.
type Variant string

const (
	VariantCambia Variant = "cambia"
	VariantTrick  Variant = "trick"
	VariantChess  Variant = "chess"
)

// Status is the lifecycle state of a whole match.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPlaying   Status = "playing"
	StatusScoring   Status = "scoring"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Player is one seat in a game.
type Player struct {
	UserID          uuid.UUID `json:"user_id"`
	Seat            int       `json:"seat"`
	Team            int       `json:"team"`
	TotalScore      int       `json:"total_score"`
	SuccessfulCalls int       `json:"successful_calls"`
}

// TrickScoring weights the team score at the end of a trick-taking round.
type TrickScoring struct {
	MadeMultiplier        int `json:"made_multiplier"`
	FailPenaltyMultiplier int `json:"fail_penalty_multiplier"`
	DefenderWeight        int `json:"defender_weight"`
}

// Settings are fixed when a game is created.
type Settings struct {
	MaxPlayers int `json:"max_players"`
	Rounds     int `json:"rounds"`

	// trick-taking
	MinBid  int          `json:"min_bid,omitempty"`
	MaxBid  int          `json:"max_bid,omitempty"`
	Scoring TrickScoring `json:"scoring,omitempty"`

	// chess
	ClockSeconds     int `json:"clock_seconds,omitempty"`
	IncrementSeconds int `json:"increment_seconds,omitempty"`
}

// OutcomeKind describes how the pot is distributed.
type OutcomeKind string

const (
	OutcomeDraw   OutcomeKind = "draw"
	OutcomeWinner OutcomeKind = "winner"
	OutcomeTeam   OutcomeKind = "team"
)

// Outcome is the final result of a finished or cancelled game.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	WinnerID    uuid.UUID   `json:"winner_id,omitempty"`
	WinningTeam int         `json:"winning_team,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// Game is the single persisted document per match.
type Game struct {
	ID        uuid.UUID `json:"id"`
	Variant   Variant   `json:"variant"`
	Status    Status    `json:"status"`
	CreatedBy uuid.UUID `json:"created_by"`
	Players   []Player  `json:"players"`
	Settings  Settings  `json:"settings"`

	WagerPerPlayer  decimal.Decimal `json:"wager_per_player"`
	FeePercent      decimal.Decimal `json:"fee_percent"`
	WagersDebited   bool            `json:"wagers_debited"`
	PayoutProcessed bool            `json:"payout_processed"`
	PayoutTimestamp *time.Time      `json:"payout_timestamp,omitempty"`

	CurrentRound int            `json:"current_round"`
	Rounds       map[int]*Round `json:"rounds"`
	TeamScores   map[int]int    `json:"team_scores,omitempty"`
	Chess        *ChessState    `json:"chess,omitempty"`
	Outcome      *Outcome       `json:"outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Round returns the current round, or nil before the game starts.
func (g *Game) Round() *Round {
	if g.Rounds == nil {
		return nil
	}
	return g.Rounds[g.CurrentRound]
}

// PlayerIndex returns the seat order index of userID, or -1.
func (g *Game) PlayerIndex(userID uuid.UUID) int {
	for i, p := range g.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Player returns the seat for userID, or nil.
func (g *Game) Player(userID uuid.UUID) *Player {
	if i := g.PlayerIndex(userID); i >= 0 {
		return &g.Players[i]
	}
	return nil
}

// IsParticipant reports whether userID holds a seat.
func (g *Game) IsParticipant(userID uuid.UUID) bool {
	return g.PlayerIndex(userID) >= 0
}

// NextPlayer returns the player seated after userID, wrapping around.
func (g *Game) NextPlayer(userID uuid.UUID) uuid.UUID {
	i := g.PlayerIndex(userID)
	if i < 0 || len(g.Players) == 0 {
		return uuid.Nil
	}
	return g.Players[(i+1)%len(g.Players)].UserID
}

// PlayerIDs returns the user ids in seat order.
func (g *Game) PlayerIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Players))
	for i, p := range g.Players {
		ids[i] = p.UserID
	}
	return ids
}

// TeamMembers returns the user ids seated on team.
func (g *Game) TeamMembers(team int) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range g.Players {
		if p.Team == team {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// IsTerminal reports whether the game is over; only ledger flags may change afterwards.
func (g *Game) IsTerminal() bool {
	return g.Status == StatusFinished || g.Status == StatusCancelled
}

// Pool is the sum of all stakes.
func (g *Game) Pool() decimal.Decimal {
	return g.WagerPerPlayer.Mul(decimal.NewFromInt(int64(len(g.Players))))
}
