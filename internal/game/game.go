// internal/game/game.go
package game

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
	ActionInitialPeek     = "complete_initial_peek"
	ActionDraw            = "draw"
	ActionExchange        = "exchange"
	ActionDiscard         = "discard"
	ActionAttemptMatch    = "attempt_match"
	ActionSkipPower       = "skip_power"
	ActionResolvePower    = "resolve_power"
	ActionCall            = "call"
	ActionTransitionRound = "transition_round"
)

const (
	MinPlayers = 2
	// MaxPlayers leaves at least one card for the discard pile after the deal.
	MaxPlayers = 8
)

// Env carries the nondeterministic inputs of a transition so tests can pin them.
type Env struct {
	Now  time.Time
	Rand deck.Shuffler
}

// RevealedCard is a card shown privately to the acting player.
type RevealedCard struct {
	models.CardRef
	Card models.Card `json:"card"`
}

// Result is what the acting player learns from a transition. Hidden information lives here,
// never in the persisted document.
type Result struct {
	Revealed  []RevealedCard `json:"revealed,omitempty"`
	Drawn     *models.Card   `json:"drawn,omitempty"`
	Matched   *bool          `json:"matched,omitempty"`
	RoundOver bool           `json:"round_over,omitempty"`
	GameOver  bool           `json:"game_over,omitempty"`
}

// StartRound deals a fresh round: four cards per player round-robin from a shuffled deck, then
// one card face up onto the discard pile. The round opens in Setup for the initial peek.
func StartRound(g *models.Game, number int, starter uuid.UUID, env Env) {
	cards := deck.NewCambiaDeck()
	deck.Shuffle(cards, env.Rand)

	hands := make(map[uuid.UUID]*models.Hand, len(g.Players))
	for _, p := range g.Players {
		hands[p.UserID] = &models.Hand{}
	}
	for slot := 0; slot < models.HandSize; slot++ {
		for _, p := range g.Players {
			c := cards[0]
			cards = cards[1:]
			hands[p.UserID][slot] = &c
		}
	}
	discard := []models.Card{cards[0]}
	cards = cards[1:]

	if g.Rounds == nil {
		g.Rounds = make(map[int]*models.Round)
	}
	g.Rounds[number] = &models.Round{
		Number:              number,
		Phase:               models.PhaseSetup,
		CurrentTurnPlayerID: starter,
		Actions:             []models.ActionRecord{},
		Cambia: &models.CambiaRound{
			Starter:              starter,
			Hands:                hands,
			DrawPile:             cards,
			DiscardPile:          discard,
			PlayersCompletedPeek: []uuid.UUID{},
			Turn:                 models.TurnSlot{State: models.Idle{}},
		},
	}
	g.CurrentRound = number
	g.Status = models.StatusPlaying
}

// cambiaRound returns the current round and its card-game section, or failed-precondition.
func cambiaRound(g *models.Game) (*models.Round, *models.CambiaRound, error) {
	r := g.Round()
	if r == nil || r.Cambia == nil {
		return nil, nil, apperr.FailedPreconditionf("no card-game round in progress")
	}
	return r, r.Cambia, nil
}

// CompleteInitialPeek shows the caller two of their own cards, once per round. It is the one
// action any seat may take out of turn.
func CompleteInitialPeek(g *models.Game, caller uuid.UUID, slots []int, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.AnySeat(models.PhaseSetup)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	if len(slots) == 0 {
		slots = []int{0, 1}
	}
	if len(slots) != 2 || slots[0] == slots[1] {
		return Result{}, apperr.InvalidArgumentf("initial peek takes two distinct slots")
	}
	for _, s := range slots {
		if s < 0 || s >= models.HandSize {
			return Result{}, apperr.InvalidArgumentf("slot %d out of range", s)
		}
	}
	if cr.HasPeeked(caller) {
		return Result{}, apperr.FailedPreconditionf("initial peek already completed")
	}

	hand := cr.Hands[caller]
	res := Result{}
	for _, s := range slots {
		if c := hand[s]; c != nil {
			res.Revealed = append(res.Revealed, RevealedCard{
				CardRef: models.CardRef{PlayerID: caller, Slot: s},
				Card:    *c,
			})
		}
	}
	cr.PlayersCompletedPeek = append(cr.PlayersCompletedPeek, caller)
	r.Record(caller, ActionInitialPeek, map[string]any{"slots": slots}, env.Now)

	if len(cr.PlayersCompletedPeek) == len(g.Players) {
		r.Phase = models.PhasePlaying
		r.CurrentTurnPlayerID = cr.Starter
	}
	return res, nil
}

// Draw takes the top card of the chosen pile. An empty draw pile is refilled from the discard
// pile minus its top card; if nothing can be drawn the round goes to scoring instead.
func Draw(g *models.Game, caller uuid.UUID, source models.DrawSource, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	if k := cr.Turn.Current().Kind(); k != models.TurnIdle {
		return Result{}, apperr.FailedPreconditionf("cannot draw while %s", k)
	}

	var card models.Card
	switch source {
	case models.SourceDrawPile:
		if len(cr.DrawPile) == 0 {
			reshuffle(cr, env)
		}
		if len(cr.DrawPile) == 0 {
			r.Record(caller, ActionDraw, map[string]any{"source": source, "exhausted": true}, env.Now)
			enterScoring(g, r, caller)
			return Result{RoundOver: true}, nil
		}
		card = cr.DrawPile[0]
		cr.DrawPile = cr.DrawPile[1:]
	case models.SourceDiscardPile:
		top, ok := cr.TopDiscard()
		if !ok {
			return Result{}, apperr.FailedPreconditionf("discard pile is empty")
		}
		card = top
		cr.DiscardPile = cr.DiscardPile[:len(cr.DiscardPile)-1]
	default:
		return Result{}, apperr.InvalidArgumentf("unknown draw source %q", source)
	}

	// powers only come off the draw pile
	power := models.PowerNone
	if source == models.SourceDrawPile {
		power = deck.PowerFor(card.Rank)
	}
	payload := map[string]any{"source": source}
	if power != models.PowerNone {
		cr.Turn.State = models.AwaitingPower{Card: card, Power: power}
		payload["power"] = power
	} else {
		cr.Turn.State = models.Holding{Card: card, Source: source}
	}
	if source == models.SourceDiscardPile {
		payload["card"] = card.String()
	}
	r.Record(caller, ActionDraw, payload, env.Now)

	return Result{Drawn: &card}, nil
}

// reshuffle moves every discard except the top card back into the draw pile.
func reshuffle(cr *models.CambiaRound, env Env) {
	if len(cr.DiscardPile) <= 1 {
		return
	}
	top := cr.DiscardPile[len(cr.DiscardPile)-1]
	pile := append([]models.Card(nil), cr.DiscardPile[:len(cr.DiscardPile)-1]...)
	deck.Shuffle(pile, env.Rand)
	cr.DrawPile = pile
	cr.DiscardPile = []models.Card{top}
}

// Exchange puts the held card into slot. The replaced card, if any, goes to the discard pile.
func Exchange(g *models.Game, caller uuid.UUID, slot int, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	held, ok := cr.Turn.Current().(models.Holding)
	if !ok {
		return Result{}, apperr.FailedPreconditionf("no drawn card to exchange")
	}
	if slot < 0 || slot >= models.HandSize {
		return Result{}, apperr.InvalidArgumentf("slot %d out of range", slot)
	}

	hand := cr.Hands[caller]
	payload := map[string]any{"slot": slot}
	if old := hand[slot]; old != nil {
		cr.DiscardPile = append(cr.DiscardPile, *old)
		payload["discarded"] = old.String()
	}
	c := held.Card
	hand[slot] = &c
	r.Record(caller, ActionExchange, payload, env.Now)

	advanceTurn(g, r)
	return Result{}, nil
}

// Discard throws the held card onto the discard pile.
func Discard(g *models.Game, caller uuid.UUID, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	held, ok := cr.Turn.Current().(models.Holding)
	if !ok {
		return Result{}, apperr.FailedPreconditionf("no drawn card to discard")
	}
	cr.DiscardPile = append(cr.DiscardPile, held.Card)
	r.Record(caller, ActionDiscard, map[string]any{"card": held.Card.String()}, env.Now)

	advanceTurn(g, r)
	return Result{}, nil
}

// AttemptMatch compares one of the caller's cards with the top discard before drawing. A rank
// match throws the card away for free; a miss only spends the attempt. The turn does not move.
func AttemptMatch(g *models.Game, caller uuid.UUID, slot int, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	if k := cr.Turn.Current().Kind(); k != models.TurnIdle {
		return Result{}, apperr.FailedPreconditionf("matching is only allowed before drawing")
	}
	if cr.MatchAttempted {
		return Result{}, apperr.FailedPreconditionf("match already attempted this turn")
	}
	if slot < 0 || slot >= models.HandSize {
		return Result{}, apperr.InvalidArgumentf("slot %d out of range", slot)
	}
	hand := cr.Hands[caller]
	c := hand[slot]
	if c == nil {
		return Result{}, apperr.FailedPreconditionf("slot %d is empty", slot)
	}
	top, ok := cr.TopDiscard()
	if !ok {
		return Result{}, apperr.FailedPreconditionf("discard pile is empty")
	}

	cr.MatchAttempted = true
	matched := c.Rank == top.Rank
	payload := map[string]any{"slot": slot, "matched": matched}
	if matched {
		cr.DiscardPile = append(cr.DiscardPile, *c)
		hand[slot] = nil
		payload["card"] = c.String()
	}
	r.Record(caller, ActionAttemptMatch, payload, env.Now)

	return Result{Matched: &matched}, nil
}

// Call declares the caller holds the lowest hand. Every other player gets one more turn; when
// play comes back around the round moves to scoring.
func Call(g *models.Game, caller uuid.UUID, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	if k := cr.Turn.Current().Kind(); k != models.TurnIdle {
		return Result{}, apperr.FailedPreconditionf("call must be made at the start of a turn")
	}
	if cr.MatchAttempted {
		return Result{}, apperr.FailedPreconditionf("call must be made before attempting a match")
	}
	if cr.Called() {
		return Result{}, apperr.FailedPreconditionf("call already made this round")
	}

	cr.CallerID = caller
	r.Record(caller, ActionCall, nil, env.Now)

	advanceTurn(g, r)
	return Result{RoundOver: r.Phase == models.PhaseScoring}, nil
}

// advanceTurn clears the turn sub-state and hands the turn to the next seat. When the next seat
// is the caller the round is over and goes to scoring with the caller holding the turn.
func advanceTurn(g *models.Game, r *models.Round) {
	cr := r.Cambia
	cr.Turn.Reset()
	cr.MatchAttempted = false
	cr.TurnCount++

	next := g.NextPlayer(r.CurrentTurnPlayerID)
	if cr.Called() && next == cr.CallerID {
		enterScoring(g, r, cr.CallerID)
		return
	}
	r.CurrentTurnPlayerID = next
}

func enterScoring(g *models.Game, r *models.Round, holder uuid.UUID) {
	r.Cambia.Turn.Reset()
	r.Cambia.MatchAttempted = false
	r.Phase = models.PhaseScoring
	r.CurrentTurnPlayerID = holder
	g.Status = models.StatusScoring
}
