// internal/trick/trick.go
package trick

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/deck"
	"github.com/jason-s-yu/stakes/internal/guard"
	"github.com/jason-s-yu/stakes/internal/models"
)

// Action types written to the round log.
const (
	ActionBid             = "place_bid"
	ActionSelectTrump     = "select_trump"
	ActionPlayCard        = "play_card"
	ActionTransitionRound = "transition_round"
)

const (
	Players       = 4
	HandSize      = 13
	TricksPerHand = HandSize
)

// Env carries the nondeterministic inputs of a transition.
type Env struct {
	Now  time.Time
	Rand deck.Shuffler
}

// BidInput is a bid amount or a pass.
type BidInput struct {
	Amount int  `json:"amount"`
	Pass   bool `json:"pass"`
}

// Result reports what changed beyond the document itself.
type Result struct {
	Redealt     bool      `json:"redealt,omitempty"`
	BidWinner   uuid.UUID `json:"bid_winner,omitempty"`
	TrickWinner uuid.UUID `json:"trick_winner,omitempty"`
	RoundOver   bool      `json:"round_over,omitempty"`
	GameOver    bool      `json:"game_over,omitempty"`
}

// TeamForSeat puts seats 0 and 2 on team 0, seats 1 and 3 on team 1.
func TeamForSeat(seat int) int {
	return seat % 2
}

// StartRound deals thirteen cards to each seat and opens bidding with starter.
func StartRound(g *models.Game, number int, starter uuid.UUID, redeals int, env Env) {
	cards := deck.NewTrickDeck()
	deck.Shuffle(cards, env.Rand)

	hands := make(map[uuid.UUID][]models.Card, len(g.Players))
	for i := 0; i < HandSize; i++ {
		for _, p := range g.Players {
			hands[p.UserID] = append(hands[p.UserID], cards[0])
			cards = cards[1:]
		}
	}

	if g.Rounds == nil {
		g.Rounds = make(map[int]*models.Round)
	}
	if g.TeamScores == nil {
		g.TeamScores = map[int]int{0: 0, 1: 0}
	}
	g.Rounds[number] = &models.Round{
		Number:              number,
		Phase:               models.PhaseBidding,
		CurrentTurnPlayerID: starter,
		Actions:             []models.ActionRecord{},
		Trick: &models.TrickRound{
			Starter:         starter,
			Hands:           hands,
			Bids:            []models.Bid{},
			Passed:          map[uuid.UUID]bool{},
			Redeals:         redeals,
			CurrentTrick:    []models.PlayedCard{},
			CompletedTricks: []models.Trick{},
			TricksWon:       map[int]int{0: 0, 1: 0},
		},
	}
	g.CurrentRound = number
	g.Status = models.StatusPlaying
}

func trickRound(g *models.Game) (*models.Round, *models.TrickRound, error) {
	r := g.Round()
	if r == nil || r.Trick == nil {
		return nil, nil, apperr.FailedPreconditionf("no trick-taking round in progress")
	}
	return r, r.Trick, nil
}

// PlaceBid records a bid or a pass. Bidding closes when the maximum is bid or when everyone
// but the high bidder has passed; four passes throw the hand in and deal again.
func PlaceBid(g *models.Game, caller uuid.UUID, in BidInput, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseBidding)); err != nil {
		return Result{}, err
	}
	r, tr, err := trickRound(g)
	if err != nil {
		return Result{}, err
	}
	if tr.Passed[caller] {
		return Result{}, apperr.FailedPreconditionf("already passed")
	}

	if in.Pass {
		tr.Passed[caller] = true
		tr.Bids = append(tr.Bids, models.Bid{PlayerID: caller, Pass: true})
		r.Record(caller, ActionBid, map[string]any{"pass": true}, env.Now)

		if len(tr.Passed) == len(g.Players) {
			StartRound(g, r.Number, g.NextPlayer(tr.Starter), tr.Redeals+1, env)
			g.Round().Actions = r.Actions
			return Result{Redealt: true}, nil
		}
		if tr.HighBidder != uuid.Nil && len(tr.Passed) == len(g.Players)-1 {
			closeBidding(r, tr)
			return Result{BidWinner: tr.HighBidder}, nil
		}
		r.CurrentTurnPlayerID = nextActiveBidder(g, tr, caller)
		return Result{}, nil
	}

	lo, hi := g.Settings.MinBid, g.Settings.MaxBid
	if in.Amount < lo || in.Amount > hi {
		return Result{}, apperr.InvalidArgumentf("bid must be between %d and %d", lo, hi)
	}
	if in.Amount <= tr.HighBid {
		return Result{}, apperr.FailedPreconditionf("bid must exceed the current high bid of %d", tr.HighBid)
	}
	tr.HighBid = in.Amount
	tr.HighBidder = caller
	tr.Bids = append(tr.Bids, models.Bid{PlayerID: caller, Amount: in.Amount})
	r.Record(caller, ActionBid, map[string]any{"amount": in.Amount}, env.Now)

	if in.Amount == hi || len(tr.Passed) == len(g.Players)-1 {
		closeBidding(r, tr)
		return Result{BidWinner: caller}, nil
	}
	r.CurrentTurnPlayerID = nextActiveBidder(g, tr, caller)
	return Result{}, nil
}

func nextActiveBidder(g *models.Game, tr *models.TrickRound, from uuid.UUID) uuid.UUID {
	next := g.NextPlayer(from)
	for tr.Passed[next] && next != from {
		next = g.NextPlayer(next)
	}
	return next
}

func closeBidding(r *models.Round, tr *models.TrickRound) {
	r.Phase = models.PhaseTrumpSelection
	r.CurrentTurnPlayerID = tr.HighBidder
}

// SelectTrump lets the bid winner name trump; they then lead the first trick.
func SelectTrump(g *models.Game, caller uuid.UUID, suit string, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseTrumpSelection)); err != nil {
		return Result{}, err
	}
	r, tr, err := trickRound(g)
	if err != nil {
		return Result{}, err
	}
	if !deck.ValidSuit(suit) {
		return Result{}, apperr.InvalidArgumentf("unknown suit %q", suit)
	}
	tr.Trump = suit
	r.Record(caller, ActionSelectTrump, map[string]any{"suit": suit}, env.Now)
	r.Phase = models.PhaseTrickPlaying
	r.CurrentTurnPlayerID = tr.HighBidder
	return Result{}, nil
}

// PlayCard lays card on the current trick. The fourth card closes the trick and its winner
// leads next; the thirteenth trick ends the round and scores it.
func PlayCard(g *models.Game, caller uuid.UUID, card models.Card, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseTrickPlaying)); err != nil {
		return Result{}, err
	}
	r, tr, err := trickRound(g)
	if err != nil {
		return Result{}, err
	}
	hand := tr.Hands[caller]
	idx := -1
	for i, h := range hand {
		if h.SameFace(card) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Result{}, apperr.InvalidArgumentf("%s is not in your hand", card)
	}
	played := hand[idx]
	if !deck.FollowsSuit(hand, played, tr.LedSuit()) {
		return Result{}, apperr.FailedPreconditionf("must follow %s", tr.LedSuit())
	}

	tr.Hands[caller] = append(hand[:idx:idx], hand[idx+1:]...)
	tr.CurrentTrick = append(tr.CurrentTrick, models.PlayedCard{PlayerID: caller, Card: played})
	r.Record(caller, ActionPlayCard, map[string]any{"card": played.String()}, env.Now)

	if len(tr.CurrentTrick) < len(g.Players) {
		r.CurrentTurnPlayerID = g.NextPlayer(caller)
		return Result{}, nil
	}

	winner := deck.TrickWinner(tr.CurrentTrick, tr.Trump)
	tr.CompletedTricks = append(tr.CompletedTricks, models.Trick{Cards: tr.CurrentTrick, Winner: winner})
	tr.TricksWon[g.Player(winner).Team]++
	tr.CurrentTrick = []models.PlayedCard{}
	r.CurrentTurnPlayerID = winner

	if len(tr.CompletedTricks) < TricksPerHand {
		return Result{TrickWinner: winner}, nil
	}
	scoreRound(g, tr)
	r.Phase = models.PhaseRoundEnded
	g.Status = models.StatusScoring
	return Result{TrickWinner: winner, RoundOver: true}, nil
}

// RoundScore applies the scoring table to one played hand.
func RoundScore(s models.TrickScoring, bid, biddingTricks, defendingTricks int) (bidding, defending int) {
	if biddingTricks >= bid {
		bidding = biddingTricks * s.MadeMultiplier
	} else {
		bidding = -bid * s.FailPenaltyMultiplier
	}
	return bidding, defendingTricks * s.DefenderWeight
}

func scoreRound(g *models.Game, tr *models.TrickRound) {
	bt := g.Player(tr.HighBidder).Team
	dt := 1 - bt
	bidding, defending := RoundScore(g.Settings.Scoring, tr.HighBid, tr.TricksWon[bt], tr.TricksWon[dt])
	tr.RoundScores = map[int]int{bt: bidding, dt: defending}
	g.TeamScores[bt] += bidding
	g.TeamScores[dt] += defending
}

// TransitionRound moves past a scored round: the next deal, or the end of the game where the
// higher team total wins and an exact tie is a draw.
func TransitionRound(g *models.Game, caller uuid.UUID, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseRoundEnded)); err != nil {
		return Result{}, err
	}
	r, tr, err := trickRound(g)
	if err != nil {
		return Result{}, err
	}
	r.Record(caller, ActionTransitionRound, map[string]any{
		"team_scores": map[string]int{"0": g.TeamScores[0], "1": g.TeamScores[1]},
	}, env.Now)

	if r.Number < g.Settings.Rounds {
		StartRound(g, r.Number+1, g.NextPlayer(tr.Starter), 0, env)
		return Result{RoundOver: true}, nil
	}

	g.Status = models.StatusFinished
	switch a, b := g.TeamScores[0], g.TeamScores[1]; {
	case a > b:
		g.Outcome = &models.Outcome{Kind: models.OutcomeTeam, WinningTeam: 0, Reason: "higher team score"}
	case b > a:
		g.Outcome = &models.Outcome{Kind: models.OutcomeTeam, WinningTeam: 1, Reason: "higher team score"}
	default:
		g.Outcome = &models.Outcome{Kind: models.OutcomeDraw, Reason: "tied team score"}
	}
	return Result{RoundOver: true, GameOver: true}, nil
}
