// internal/game/game_test.go
package game

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/deck"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() Env {
	return Env{
		Now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Rand: rand.New(rand.NewSource(42)),
	}
}

func c(suit, rank string) *models.Card {
	return &models.Card{Suit: suit, Rank: rank, Value: deck.CambiaValue(suit, rank)}
}

// setupTestGame deals a round for numPlayers and completes everyone's initial peek.
func setupTestGame(t *testing.T, numPlayers int) (*models.Game, []uuid.UUID) {
	t.Helper()
	g := &models.Game{
		ID:       uuid.New(),
		Variant:  models.VariantCambia,
		Status:   models.StatusWaiting,
		Settings: models.Settings{MaxPlayers: numPlayers, Rounds: 1},
	}
	ids := make([]uuid.UUID, numPlayers)
	for i := range ids {
		ids[i] = uuid.New()
		g.Players = append(g.Players, models.Player{UserID: ids[i], Seat: i})
	}
	env := testEnv()
	StartRound(g, 1, ids[0], env)
	for _, id := range ids {
		_, err := CompleteInitialPeek(g, id, nil, env)
		require.NoError(t, err)
	}
	require.Equal(t, models.PhasePlaying, g.Round().Phase)
	return g, ids
}

// stackDrawPile puts cards on top of the draw pile in order.
func stackDrawPile(g *models.Game, cards ...*models.Card) {
	cr := g.Round().Cambia
	top := make([]models.Card, 0, len(cards)+len(cr.DrawPile))
	for _, card := range cards {
		top = append(top, *card)
	}
	cr.DrawPile = append(top, cr.DrawPile...)
}

func TestStartRoundDeal(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	cr := g.Round().Cambia

	total := len(cr.DrawPile) + len(cr.DiscardPile)
	for _, id := range ids {
		require.Equal(t, models.HandSize, cr.Hands[id].Occupied())
		total += cr.Hands[id].Occupied()
	}
	assert.Equal(t, 52, total)
	assert.Len(t, cr.DiscardPile, 1)
	assert.Equal(t, models.StatusPlaying, g.Status)
	assert.Equal(t, ids[0], g.Round().CurrentTurnPlayerID)
}

func TestInitialPeek(t *testing.T) {
	env := testEnv()
	a, b := uuid.New(), uuid.New()
	g := &models.Game{ID: uuid.New(), Players: []models.Player{{UserID: a}, {UserID: b, Seat: 1}}}
	StartRound(g, 1, b, env)

	// out of turn is fine during setup
	res, err := CompleteInitialPeek(g, a, []int{2, 3}, env)
	require.NoError(t, err)
	require.Len(t, res.Revealed, 2)
	assert.Equal(t, *g.Round().Cambia.Hands[a][2], res.Revealed[0].Card)
	assert.Equal(t, models.PhaseSetup, g.Round().Phase)

	_, err = CompleteInitialPeek(g, a, nil, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))

	_, err = CompleteInitialPeek(g, b, []int{1, 1}, env)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = Draw(g, b, models.SourceDrawPile, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "no drawing before everyone peeked")

	_, err = CompleteInitialPeek(g, b, nil, env)
	require.NoError(t, err)
	assert.Equal(t, models.PhasePlaying, g.Round().Phase)
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID)
	assert.Len(t, g.Round().Actions, 2)
}

func TestTurnInvariant(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	env := testEnv()
	before := len(g.Round().Actions)

	for _, id := range ids[1:] {
		_, err := Draw(g, id, models.SourceDrawPile, env)
		assert.True(t, apperr.Is(err, apperr.PermissionDenied))
		_, err = AttemptMatch(g, id, 0, env)
		assert.True(t, apperr.Is(err, apperr.PermissionDenied))
		_, err = Call(g, id, env)
		assert.True(t, apperr.Is(err, apperr.PermissionDenied))
	}
	_, err := Draw(g, uuid.New(), models.SourceDrawPile, env)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
	assert.Len(t, g.Round().Actions, before, "rejected actions record nothing")
}

func TestRoundRobin(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	env := testEnv()

	for turn := 0; turn < 7; turn++ {
		cur := ids[turn%3]
		require.Equal(t, cur, g.Round().CurrentTurnPlayerID)
		stackDrawPile(g, c("C", "2"))
		_, err := Draw(g, cur, models.SourceDrawPile, env)
		require.NoError(t, err)
		_, err = Discard(g, cur, env)
		require.NoError(t, err)
		assert.Equal(t, models.TurnIdle, g.Round().Cambia.Turn.Current().Kind())
	}
	assert.Equal(t, ids[1], g.Round().CurrentTurnPlayerID)
	assert.Equal(t, 7, g.Round().Cambia.TurnCount)
}

func TestDrawThenExchange(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a := ids[0]
	cr := g.Round().Cambia
	old := *cr.Hands[a][1]

	stackDrawPile(g, c("S", "4"))
	res, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
	require.NotNil(t, res.Drawn)
	assert.Equal(t, "4S", res.Drawn.String())

	_, err = Draw(g, a, models.SourceDrawPile, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "second draw while holding")
	_, err = AttemptMatch(g, a, 0, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "match only before drawing")

	_, err = Exchange(g, a, 1, env)
	require.NoError(t, err)
	assert.Equal(t, "4S", cr.Hands[a][1].String())
	top, _ := cr.TopDiscard()
	assert.Equal(t, old, top)
	assert.Equal(t, ids[1], g.Round().CurrentTurnPlayerID)
}

func TestExchangeIntoEmptySlot(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a := ids[0]
	cr := g.Round().Cambia
	cr.Hands[a][3] = nil
	discards := len(cr.DiscardPile)

	stackDrawPile(g, c("S", "4"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
	_, err = Exchange(g, a, 3, env)
	require.NoError(t, err)
	assert.Equal(t, "4S", cr.Hands[a][3].String())
	assert.Len(t, cr.DiscardPile, discards)
}

func TestDrawFromDiscardNeverGrantsPower(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	cr := g.Round().Cambia
	cr.DiscardPile = append(cr.DiscardPile, *c("S", "K"))

	res, err := Draw(g, ids[0], models.SourceDiscardPile, env)
	require.NoError(t, err)
	assert.Equal(t, "KS", res.Drawn.String())
	held, ok := cr.Turn.Current().(models.Holding)
	require.True(t, ok)
	assert.Equal(t, models.SourceDiscardPile, held.Source)

	_, err = SkipPower(g, ids[0], env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))
}

func TestPowerDrawMustBeResolvedOrSkipped(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a := ids[0]

	stackDrawPile(g, c("C", "7"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
	pending, ok := g.Round().Cambia.Turn.Current().(models.AwaitingPower)
	require.True(t, ok)
	assert.Equal(t, models.PowerPeekOwn, pending.Power)

	_, err = Discard(g, a, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))
	_, err = Exchange(g, a, 0, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))

	_, err = SkipPower(g, a, env)
	require.NoError(t, err)
	top, _ := g.Round().Cambia.TopDiscard()
	assert.Equal(t, "7C", top.String())
	assert.Equal(t, ids[1], g.Round().CurrentTurnPlayerID)
}

func TestResolvePeekPowers(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]
	cr := g.Round().Cambia

	stackDrawPile(g, c("C", "8"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)

	_, err = ResolvePower(g, a, PeekOpponent{Target: models.CardRef{PlayerID: b, Slot: 0}}, env)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument), "target variant must match the power")

	res, err := ResolvePower(g, a, PeekOwn{Slot: 2}, env)
	require.NoError(t, err)
	require.Len(t, res.Revealed, 1)
	assert.Equal(t, *cr.Hands[a][2], res.Revealed[0].Card)
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID)

	stackDrawPile(g, c("C", "9"))
	_, err = Draw(g, b, models.SourceDrawPile, env)
	require.NoError(t, err)
	_, err = ResolvePower(g, b, PeekOpponent{Target: models.CardRef{PlayerID: b, Slot: 0}}, env)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
	res, err = ResolvePower(g, b, PeekOpponent{Target: models.CardRef{PlayerID: a, Slot: 3}}, env)
	require.NoError(t, err)
	assert.Equal(t, *cr.Hands[a][3], res.Revealed[0].Card)
	assert.Equal(t, a, g.Round().CurrentTurnPlayerID)
}

func TestBlindSwap(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	env := testEnv()
	a, b := ids[0], ids[1]
	cr := g.Round().Cambia
	cardA, cardB := *cr.Hands[a][0], *cr.Hands[b][1]

	stackDrawPile(g, c("C", "J"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)

	_, err = ResolvePower(g, a, BlindSwap{
		A: models.CardRef{PlayerID: a, Slot: 0},
		B: models.CardRef{PlayerID: a, Slot: 1},
	}, env)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument), "same player")

	_, err = ResolvePower(g, a, BlindSwap{
		A: models.CardRef{PlayerID: a, Slot: 0},
		B: models.CardRef{PlayerID: b, Slot: 1},
	}, env)
	require.NoError(t, err)
	assert.Equal(t, cardB, *cr.Hands[a][0])
	assert.Equal(t, cardA, *cr.Hands[b][1])
	assert.Equal(t, ids[2], g.Round().CurrentTurnPlayerID)
}

func TestSeenSwapTwoStep(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]
	cr := g.Round().Cambia
	cardA, cardB := *cr.Hands[a][2], *cr.Hands[b][3]
	refA := models.CardRef{PlayerID: a, Slot: 2}
	refB := models.CardRef{PlayerID: b, Slot: 3}

	stackDrawPile(g, c("C", "K"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)

	_, err = ResolvePower(g, a, SeenSwapConfirm{Swap: true}, env)
	assert.True(t, apperr.Is(err, apperr.InvalidArgument), "confirm before peek")

	res, err := ResolvePower(g, a, SeenSwapPeek{A: refA, B: refB}, env)
	require.NoError(t, err)
	require.Len(t, res.Revealed, 2)
	assert.Equal(t, cardA, res.Revealed[0].Card)
	assert.Equal(t, cardB, res.Revealed[1].Card)
	assert.Equal(t, a, g.Round().CurrentTurnPlayerID, "peek step keeps the turn")
	assert.Equal(t, models.TurnSeenSwapPending, cr.Turn.Current().Kind())

	_, err = SkipPower(g, a, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))

	_, err = ResolvePower(g, a, SeenSwapConfirm{Swap: true}, env)
	require.NoError(t, err)
	assert.Equal(t, cardB, *cr.Hands[a][2])
	assert.Equal(t, cardA, *cr.Hands[b][3])
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID)
	top, _ := cr.TopDiscard()
	assert.Equal(t, "KC", top.String())
}

func TestSeenSwapDecline(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]
	cr := g.Round().Cambia
	cardA := *cr.Hands[a][0]

	stackDrawPile(g, c("S", "K"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
	_, err = ResolvePower(g, a, SeenSwapPeek{
		A: models.CardRef{PlayerID: a, Slot: 0},
		B: models.CardRef{PlayerID: b, Slot: 0},
	}, env)
	require.NoError(t, err)
	_, err = ResolvePower(g, a, SeenSwapConfirm{Swap: false}, env)
	require.NoError(t, err)
	assert.Equal(t, cardA, *cr.Hands[a][0])
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID)
}

func TestCallerHandIsLocked(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	env := testEnv()
	a, b, d := ids[0], ids[1], ids[2]

	_, err := Call(g, a, env)
	require.NoError(t, err)
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID)

	stackDrawPile(g, c("C", "Q"))
	_, err = Draw(g, b, models.SourceDrawPile, env)
	require.NoError(t, err)
	_, err = ResolvePower(g, b, BlindSwap{
		A: models.CardRef{PlayerID: b, Slot: 0},
		B: models.CardRef{PlayerID: a, Slot: 0},
	}, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))

	_, err = ResolvePower(g, b, BlindSwap{
		A: models.CardRef{PlayerID: b, Slot: 0},
		B: models.CardRef{PlayerID: d, Slot: 0},
	}, env)
	require.NoError(t, err)
}

func TestAttemptMatch(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a := ids[0]
	cr := g.Round().Cambia
	cr.Hands[a][0] = c("H", "5")
	cr.Hands[a][1] = c("S", "9")
	cr.DiscardPile = append(cr.DiscardPile, *c("C", "5"))

	res, err := AttemptMatch(g, a, 0, env)
	require.NoError(t, err)
	require.True(t, *res.Matched)
	assert.Nil(t, cr.Hands[a][0])
	top, _ := cr.TopDiscard()
	assert.Equal(t, "5H", top.String())
	assert.Equal(t, a, g.Round().CurrentTurnPlayerID, "matching does not end the turn")

	_, err = AttemptMatch(g, a, 1, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "one attempt per turn")
	_, err = Call(g, a, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "no call after a match attempt")

	// the player may still draw
	_, err = Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
}

func TestAttemptMatchMiss(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a := ids[0]
	cr := g.Round().Cambia
	cr.Hands[a][1] = c("S", "9")
	cr.DiscardPile = append(cr.DiscardPile, *c("C", "5"))

	res, err := AttemptMatch(g, a, 1, env)
	require.NoError(t, err)
	assert.False(t, *res.Matched)
	assert.Equal(t, "9S", cr.Hands[a][1].String())
	assert.True(t, cr.MatchAttempted)
}

func TestCallEndsRoundWhenTurnReturns(t *testing.T) {
	g, ids := setupTestGame(t, 3)
	env := testEnv()
	a, b, d := ids[0], ids[1], ids[2]

	stackDrawPile(g, c("C", "2"), c("C", "3"), c("C", "4"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)
	_, err = Discard(g, a, env)
	require.NoError(t, err)

	res, err := Call(g, b, env)
	require.NoError(t, err)
	assert.False(t, res.RoundOver)
	_, err = Call(g, d, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "only one call per round")

	for _, id := range []uuid.UUID{d, a} {
		_, err = Draw(g, id, models.SourceDrawPile, env)
		require.NoError(t, err)
		_, err = Discard(g, id, env)
		require.NoError(t, err)
	}
	r := g.Round()
	assert.Equal(t, models.PhaseScoring, r.Phase)
	assert.Equal(t, b, r.CurrentTurnPlayerID)
	assert.Equal(t, models.StatusScoring, g.Status)
}

func TestDrawReshufflesDiscardPile(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	cr := g.Round().Cambia
	cr.DrawPile = nil
	cr.DiscardPile = []models.Card{*c("C", "2"), *c("C", "3"), *c("C", "4")}

	_, err := Draw(g, ids[0], models.SourceDrawPile, env)
	require.NoError(t, err)
	assert.Len(t, cr.DrawPile, 1)
	require.Len(t, cr.DiscardPile, 1)
	assert.Equal(t, "4C", cr.DiscardPile[0].String())
}

func TestDrawWithNothingLeftGoesToScoring(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	cr := g.Round().Cambia
	cr.DrawPile = nil
	cr.DiscardPile = []models.Card{*c("C", "2")}

	res, err := Draw(g, ids[0], models.SourceDrawPile, env)
	require.NoError(t, err)
	assert.True(t, res.RoundOver)
	assert.Equal(t, models.PhaseScoring, g.Round().Phase)
}

func TestTransitionRoundScoresIncorrectCall(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]
	g.Settings.Rounds = 2
	r := g.Round()
	cr := r.Cambia
	cr.Hands[a] = &models.Hand{c("H", "K"), c("C", "5"), c("S", "3"), c("D", "J")}
	cr.Hands[b] = &models.Hand{c("C", "2"), c("C", "T"), nil, nil}
	cr.CallerID = a
	r.Phase = models.PhaseScoring
	r.CurrentTurnPlayerID = a

	_, err := TransitionRound(g, b, env)
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	res, err := TransitionRound(g, a, env)
	require.NoError(t, err)
	assert.True(t, res.RoundOver)
	assert.False(t, res.GameOver)

	scored := g.Rounds[1].Cambia
	assert.Equal(t, 19, scored.RawScores[a])
	assert.Equal(t, 38, scored.FinalScores[a])
	assert.Equal(t, 12, scored.FinalScores[b])
	assert.Equal(t, b, scored.RoundWinner)
	assert.Equal(t, models.PhaseComplete, g.Rounds[1].Phase)

	assert.Equal(t, 38, g.Player(a).TotalScore)
	assert.Equal(t, 0, g.Player(a).SuccessfulCalls)

	// next round dealt with the starter rotated
	require.Equal(t, 2, g.CurrentRound)
	assert.Equal(t, models.PhaseSetup, g.Round().Phase)
	assert.Equal(t, b, g.Round().Cambia.Starter)
	assert.Equal(t, models.StatusPlaying, g.Status)
}

func TestTransitionRoundFinishesGame(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]
	r := g.Round()
	cr := r.Cambia
	cr.Hands[a] = &models.Hand{c("C", "A"), nil, nil, nil}
	cr.Hands[b] = &models.Hand{c("C", "2"), nil, nil, nil}
	cr.CallerID = a
	r.Phase = models.PhaseScoring
	r.CurrentTurnPlayerID = a

	res, err := TransitionRound(g, a, env)
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.Equal(t, models.StatusFinished, g.Status)
	require.NotNil(t, g.Outcome)
	assert.Equal(t, models.OutcomeWinner, g.Outcome.Kind)
	assert.Equal(t, a, g.Outcome.WinnerID)
	assert.Equal(t, 1, g.Player(a).SuccessfulCalls)

	_, err = Draw(g, a, models.SourceDrawPile, env)
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))
}

func TestTransitionRoundTieIsDraw(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	r := g.Round()
	for _, id := range ids {
		r.Cambia.Hands[id] = &models.Hand{c("C", "4"), nil, nil, nil}
	}
	r.Phase = models.PhaseScoring
	r.CurrentTurnPlayerID = ids[1]

	_, err := TransitionRound(g, ids[1], env)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, g.Rounds[1].Cambia.RoundWinner)
	assert.Equal(t, models.OutcomeDraw, g.Outcome.Kind)
}

func TestDecodePowerTarget(t *testing.T) {
	b := uuid.New()
	cases := map[string]PowerTarget{
		`{"power":"peek_own","slot":2}`: PeekOwn{Slot: 2},
		`{"power":"peek_opponent","target":{"player_id":"` + b.String() + `","slot":1}}`: PeekOpponent{
			Target: models.CardRef{PlayerID: b, Slot: 1},
		},
		`{"power":"seen_swap","phase":"confirm","swap":true}`: SeenSwapConfirm{Swap: true},
	}
	for raw, want := range cases {
		got, err := DecodePowerTarget(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := DecodePowerTarget(json.RawMessage(`{"power":"seen_swap"}`))
	assert.Error(t, err)
	_, err = DecodePowerTarget(json.RawMessage(`{"power":"teleport"}`))
	assert.Error(t, err)
}

func TestBuildViewHidesCards(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	env := testEnv()
	a, b := ids[0], ids[1]

	stackDrawPile(g, c("C", "4"))
	_, err := Draw(g, a, models.SourceDrawPile, env)
	require.NoError(t, err)

	mine := BuildView(g, a)
	require.NotNil(t, mine.HeldCard)
	assert.Equal(t, "4C", mine.HeldCard.String())
	assert.Nil(t, BuildView(g, b).HeldCard)

	v := BuildView(g, b)
	require.Len(t, v.Players, 2)
	assert.Equal(t, 4, v.Players[0].HandSize)
	assert.True(t, v.Players[0].IsCurrentTurn)
	assert.NotNil(t, v.DiscardTop)
	assert.Equal(t, models.TurnHolding, v.Turn)
}
