package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnSlotRoundTripsEveryVariant(t *testing.T) {
	p := uuid.New()
	king := Card{Suit: "S", Rank: "K", Value: 13}
	states := []TurnState{
		Idle{},
		Holding{Card: Card{Suit: "H", Rank: "5", Value: 5}, Source: SourceDiscardPile},
		AwaitingPower{Card: king, Power: PowerSeenSwap},
		SeenSwapPending{Card: king, First: CardRef{PlayerID: p, Slot: 1}, Second: CardRef{PlayerID: p, Slot: 3}},
	}
	for _, st := range states {
		t.Run(string(st.Kind()), func(t *testing.T) {
			data, err := json.Marshal(TurnSlot{State: st})
			require.NoError(t, err)

			var out TurnSlot
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Equal(t, st, out.Current())
		})
	}
}

func TestTurnSlotZeroValueIsIdle(t *testing.T) {
	var s TurnSlot
	assert.Equal(t, TurnIdle, s.Current().Kind())

	var decoded TurnSlot
	require.NoError(t, json.Unmarshal([]byte(`{"kind":""}`), &decoded))
	assert.Equal(t, Idle{}, decoded.Current())

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus"}`), &decoded))
}

func TestGameSeatHelpers(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	g := &Game{Players: []Player{{UserID: a}, {UserID: b, Team: 1}, {UserID: c}}}

	assert.Equal(t, b, g.NextPlayer(a))
	assert.Equal(t, a, g.NextPlayer(c))
	assert.Equal(t, uuid.Nil, g.NextPlayer(uuid.New()))
	assert.Equal(t, []uuid.UUID{a, c}, g.TeamMembers(0))
	assert.True(t, g.IsParticipant(c))
}
