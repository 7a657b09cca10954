package trick

import (
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
		Rand: rand.New(rand.NewSource(3)),
	}
}

func setupTestGame(t *testing.T, rounds int) (*models.Game, []uuid.UUID) {
	t.Helper()
	g := &models.Game{
		ID:       uuid.New(),
		Variant:  models.VariantTrick,
		Settings: models.DefaultSettings(models.VariantTrick),
	}
	g.Settings.Rounds = rounds
	ids := make([]uuid.UUID, Players)
	for i := range ids {
		ids[i] = uuid.New()
		g.Players = append(g.Players, models.Player{UserID: ids[i], Seat: i, Team: TeamForSeat(i)})
	}
	StartRound(g, 1, ids[0], 0, testEnv())
	return g, ids
}

// suitHands gives every seat a whole suit: seat 0 spades, 1 hearts, 2 diamonds, 3 clubs.
func suitHands(g *models.Game, ids []uuid.UUID) {
	suits := []string{"S", "H", "D", "C"}
	for i, id := range ids {
		hand := make([]models.Card, 0, HandSize)
		for _, rank := range deck.Ranks {
			hand = append(hand, models.Card{Suit: suits[i], Rank: rank, Value: deck.TrickStrength(rank)})
		}
		g.Round().Trick.Hands[id] = hand
	}
}

func bid(t *testing.T, g *models.Game, id uuid.UUID, amount int) Result {
	t.Helper()
	res, err := PlaceBid(g, id, BidInput{Amount: amount}, testEnv())
	require.NoError(t, err)
	return res
}

func pass(t *testing.T, g *models.Game, id uuid.UUID) Result {
	t.Helper()
	res, err := PlaceBid(g, id, BidInput{Pass: true}, testEnv())
	require.NoError(t, err)
	return res
}

func TestDeal(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	tr := g.Round().Trick
	seen := map[string]bool{}
	for _, id := range ids {
		require.Len(t, tr.Hands[id], HandSize)
		for _, c := range tr.Hands[id] {
			assert.False(t, seen[c.String()])
			seen[c.String()] = true
		}
	}
	assert.Equal(t, models.PhaseBidding, g.Round().Phase)
}

func TestBiddingClosesAfterThreePasses(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	_, err := PlaceBid(g, b, BidInput{Amount: 7}, testEnv())
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))

	bid(t, g, a, 7)
	_, err = PlaceBid(g, b, BidInput{Amount: 7}, testEnv())
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition), "must exceed the high bid")
	_, err = PlaceBid(g, b, BidInput{Amount: 6}, testEnv())
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
	_, err = PlaceBid(g, b, BidInput{Amount: 14}, testEnv())
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	bid(t, g, b, 8)
	pass(t, g, c)
	pass(t, g, d)
	require.Equal(t, a, g.Round().CurrentTurnPlayerID)
	res := pass(t, g, a)

	assert.Equal(t, b, res.BidWinner)
	r := g.Round()
	assert.Equal(t, models.PhaseTrumpSelection, r.Phase)
	assert.Equal(t, b, r.CurrentTurnPlayerID)
	assert.Equal(t, 8, r.Trick.HighBid)
	assert.Len(t, r.Actions, 5)
}

func TestPassedPlayersAreSkipped(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	pass(t, g, a)
	bid(t, g, b, 7)
	bid(t, g, c, 8)
	bid(t, g, d, 9)
	assert.Equal(t, b, g.Round().CurrentTurnPlayerID, "a passed and is skipped")
}

func TestMaxBidClosesBidding(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	res := bid(t, g, ids[0], 13)
	assert.Equal(t, ids[0], res.BidWinner)
	assert.Equal(t, models.PhaseTrumpSelection, g.Round().Phase)
}

func TestFourPassesRedeal(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	for _, id := range ids[:3] {
		pass(t, g, id)
	}
	res := pass(t, g, ids[3])

	assert.True(t, res.Redealt)
	r := g.Round()
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, models.PhaseBidding, r.Phase)
	assert.Equal(t, 1, r.Trick.Redeals)
	assert.Equal(t, ids[1], r.CurrentTurnPlayerID)
	assert.Empty(t, r.Trick.Passed)
	assert.Len(t, r.Actions, 4, "passes survive the redeal")
}

func TestSelectTrump(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	bid(t, g, ids[0], 13)

	_, err := SelectTrump(g, ids[1], "S", testEnv())
	assert.True(t, apperr.Is(err, apperr.PermissionDenied))
	_, err = SelectTrump(g, ids[0], "X", testEnv())
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = SelectTrump(g, ids[0], "H", testEnv())
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTrickPlaying, g.Round().Phase)
	assert.Equal(t, ids[0], g.Round().CurrentTurnPlayerID)
}

func TestFollowSuit(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	tr := g.Round().Trick
	tr.Hands[ids[0]] = []models.Card{{Suit: "H", Rank: "2"}}
	tr.Hands[ids[1]] = []models.Card{{Suit: "C", Rank: "A"}, {Suit: "H", Rank: "3"}}
	bid(t, g, ids[0], 13)
	_, err := SelectTrump(g, ids[0], "S", testEnv())
	require.NoError(t, err)

	_, err = PlayCard(g, ids[0], models.Card{Suit: "D", Rank: "2"}, testEnv())
	assert.True(t, apperr.Is(err, apperr.InvalidArgument), "card not held")

	_, err = PlayCard(g, ids[0], models.Card{Suit: "H", Rank: "2"}, testEnv())
	require.NoError(t, err)
	_, err = PlayCard(g, ids[1], models.Card{Suit: "C", Rank: "A"}, testEnv())
	assert.True(t, apperr.Is(err, apperr.FailedPrecondition))
	_, err = PlayCard(g, ids[1], models.Card{Suit: "H", Rank: "3"}, testEnv())
	require.NoError(t, err)
	assert.Equal(t, ids[2], g.Round().CurrentTurnPlayerID)
	assert.Len(t, tr.Hands[ids[1]], 1)
}

// playOut plays every remaining trick with each seat laying its first card.
func playOut(t *testing.T, g *models.Game) {
	t.Helper()
	for g.Round().Phase == models.PhaseTrickPlaying {
		cur := g.Round().CurrentTurnPlayerID
		card := g.Round().Trick.Hands[cur][0]
		_, err := PlayCard(g, cur, card, testEnv())
		require.NoError(t, err)
	}
}

func TestFullRoundScoring(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	suitHands(g, ids)
	bid(t, g, ids[0], 7)
	for _, id := range ids[1:] {
		pass(t, g, id)
	}
	_, err := SelectTrump(g, ids[0], "S", testEnv())
	require.NoError(t, err)

	playOut(t, g)

	r := g.Round()
	assert.Equal(t, models.PhaseRoundEnded, r.Phase)
	assert.Len(t, r.Trick.CompletedTricks, 13)
	assert.Equal(t, 13, r.Trick.TricksWon[0])
	assert.Equal(t, 130, g.TeamScores[0])
	assert.Equal(t, 0, g.TeamScores[1])
	assert.Equal(t, models.StatusScoring, g.Status)

	res, err := TransitionRound(g, ids[0], testEnv())
	require.NoError(t, err)
	assert.True(t, res.GameOver)
	assert.Equal(t, models.StatusFinished, g.Status)
	assert.Equal(t, models.OutcomeTeam, g.Outcome.Kind)
	assert.Equal(t, 0, g.Outcome.WinningTeam)
}

func TestTransitionRoundDealsNextRound(t *testing.T) {
	g, ids := setupTestGame(t, 2)
	suitHands(g, ids)
	bid(t, g, ids[0], 13)
	_, err := SelectTrump(g, ids[0], "S", testEnv())
	require.NoError(t, err)
	playOut(t, g)

	_, err = TransitionRound(g, ids[1], testEnv())
	assert.True(t, apperr.Is(err, apperr.PermissionDenied), "trick winner holds the turn")

	res, err := TransitionRound(g, ids[0], testEnv())
	require.NoError(t, err)
	assert.False(t, res.GameOver)
	assert.Equal(t, 2, g.CurrentRound)
	assert.Equal(t, ids[1], g.Round().Trick.Starter)
	assert.Equal(t, 130, g.TeamScores[0], "team totals carry over")
}

func TestTiedTeamsDraw(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	r := g.Round()
	r.Phase = models.PhaseRoundEnded
	r.CurrentTurnPlayerID = ids[2]
	g.TeamScores = map[int]int{0: 40, 1: 40}

	_, err := TransitionRound(g, ids[2], testEnv())
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDraw, g.Outcome.Kind)
}

func TestRoundScore(t *testing.T) {
	s := models.TrickScoring{MadeMultiplier: 10, FailPenaltyMultiplier: 10, DefenderWeight: 5}

	bidding, defending := RoundScore(s, 9, 5, 8)
	assert.Equal(t, -90, bidding)
	assert.Equal(t, 40, defending)

	bidding, defending = RoundScore(s, 7, 7, 6)
	assert.Equal(t, 70, bidding)
	assert.Equal(t, 30, defending)
}

func TestBuildView(t *testing.T) {
	g, ids := setupTestGame(t, 1)
	v := BuildView(g, ids[1])
	require.NotNil(t, v)
	assert.Equal(t, g.Round().Trick.Hands[ids[1]], v.Hand)
	require.Len(t, v.Seats, 4)
	assert.Equal(t, 13, v.Seats[0].HandSize)
	assert.Equal(t, 1, v.Seats[3].Team)
}
