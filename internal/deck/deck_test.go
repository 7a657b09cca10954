package deck

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(suit, rank string) *models.Card {
	return &models.Card{Suit: suit, Rank: rank, Value: CambiaValue(suit, rank)}
}

func TestCambiaDeck(t *testing.T) {
	d := NewCambiaDeck()
	require.Len(t, d, 52)

	zero := 0
	seen := map[string]bool{}
	for _, c := range d {
		assert.False(t, seen[c.String()], "duplicate card %s", c)
		seen[c.String()] = true
		if c.Value == 0 {
			zero++
			assert.Equal(t, "K", c.Rank)
			assert.Contains(t, []string{"H", "D"}, c.Suit)
		}
	}
	assert.Equal(t, 2, zero, "only the red kings are worth zero")
	assert.Equal(t, 13, CambiaValue("S", "K"))
	assert.Equal(t, 1, CambiaValue("C", "A"))
	assert.Equal(t, 10, CambiaValue("C", "T"))
}

func TestShuffleIsPermutation(t *testing.T) {
	d := NewCambiaDeck()
	Shuffle(d, rand.New(rand.NewSource(7)))
	assert.ElementsMatch(t, NewCambiaDeck(), d)
	assert.NotEqual(t, NewCambiaDeck(), d)
}

func TestPowerFor(t *testing.T) {
	cases := map[string]models.PowerType{
		"7": models.PowerPeekOwn, "8": models.PowerPeekOwn,
		"9": models.PowerPeekOpponent, "T": models.PowerPeekOpponent,
		"J": models.PowerBlindSwap, "Q": models.PowerBlindSwap,
		"K": models.PowerSeenSwap,
		"A": models.PowerNone, "6": models.PowerNone,
	}
	for rank, want := range cases {
		assert.Equal(t, want, PowerFor(rank), rank)
	}
}

func TestHandScoreSkipsEmptySlots(t *testing.T) {
	h := &models.Hand{card("H", "K"), card("C", "5"), card("S", "3"), card("D", "J")}
	assert.Equal(t, 19, HandScore(h))

	h[1] = nil
	assert.Equal(t, 14, HandScore(h))
	assert.Equal(t, 0, HandScore(nil))
}

func TestResolveRoundIncorrectCallIsDoubled(t *testing.T) {
	caller, other := uuid.New(), uuid.New()
	raw := map[uuid.UUID]int{caller: 19, other: 12}

	res := ResolveRound(raw, []uuid.UUID{caller, other}, caller)
	require.NotNil(t, res.CallSucceeded)
	assert.False(t, *res.CallSucceeded)
	assert.Equal(t, 38, res.Final[caller])
	assert.Equal(t, 12, res.Final[other])
	assert.Equal(t, other, res.Winner)
	assert.Equal(t, 19, raw[caller], "raw scores are not mutated")
}

func TestResolveRoundCallMustBeUniqueMinimum(t *testing.T) {
	caller, other := uuid.New(), uuid.New()

	tie := ResolveRound(map[uuid.UUID]int{caller: 5, other: 5}, []uuid.UUID{caller, other}, caller)
	assert.False(t, *tie.CallSucceeded)
	assert.Equal(t, 10, tie.Final[caller])
	assert.Equal(t, other, tie.Winner)

	win := ResolveRound(map[uuid.UUID]int{caller: 4, other: 5}, []uuid.UUID{caller, other}, caller)
	assert.True(t, *win.CallSucceeded)
	assert.Equal(t, 4, win.Final[caller])
	assert.Equal(t, caller, win.Winner)
}

func TestResolveRoundTieHasNoWinner(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	res := ResolveRound(map[uuid.UUID]int{a: 3, b: 3, c: 9}, []uuid.UUID{a, b, c}, uuid.Nil)
	assert.Nil(t, res.CallSucceeded)
	assert.Equal(t, uuid.Nil, res.Winner)
}

func TestGameWinnerTieBreaks(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, a, GameWinner([]models.Player{{UserID: a, TotalScore: 10}, {UserID: b, TotalScore: 11}}))
	assert.Equal(t, b, GameWinner([]models.Player{
		{UserID: a, TotalScore: 10, SuccessfulCalls: 0},
		{UserID: b, TotalScore: 10, SuccessfulCalls: 2},
	}))
	assert.Equal(t, uuid.Nil, GameWinner([]models.Player{
		{UserID: a, TotalScore: 10, SuccessfulCalls: 1},
		{UserID: b, TotalScore: 10, SuccessfulCalls: 1},
	}))
}

func TestTrickWinner(t *testing.T) {
	p := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	play := func(cards ...models.Card) []models.PlayedCard {
		out := make([]models.PlayedCard, len(cards))
		for i, c := range cards {
			out[i] = models.PlayedCard{PlayerID: p[i], Card: c}
		}
		return out
	}
	c := func(s, r string) models.Card { return models.Card{Suit: s, Rank: r} }

	assert.Equal(t, p[2], TrickWinner(play(c("H", "9"), c("H", "K"), c("H", "A"), c("C", "A")), "S"))
	assert.Equal(t, p[3], TrickWinner(play(c("H", "9"), c("H", "K"), c("H", "A"), c("S", "2")), "S"))
	assert.Equal(t, p[1], TrickWinner(play(c("H", "9"), c("S", "3"), c("D", "A"), c("S", "2")), "S"))
	assert.Equal(t, p[0], TrickWinner(play(c("H", "9"), c("D", "K"), c("C", "A"), c("D", "2")), "S"))
}

func TestFollowsSuit(t *testing.T) {
	hand := []models.Card{{Suit: "H", Rank: "2"}, {Suit: "C", Rank: "9"}}
	assert.True(t, FollowsSuit(hand, hand[0], "H"))
	assert.False(t, FollowsSuit(hand, hand[1], "H"))
	assert.True(t, FollowsSuit(hand, hand[1], "D"))
	assert.True(t, FollowsSuit(hand, hand[1], ""))
}
