package guard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/stretchr/testify/assert"
)

func newGame(a, b uuid.UUID) *models.Game {
	return &models.Game{
		ID:           uuid.New(),
		Status:       models.StatusPlaying,
		Players:      []models.Player{{UserID: a, Seat: 0}, {UserID: b, Seat: 1}},
		CurrentRound: 1,
		Rounds: map[int]*models.Round{
			1: {Number: 1, Phase: models.PhasePlaying, CurrentTurnPlayerID: a},
		},
	}
}

func TestCheckOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	g := newGame(a, b)

	assert.NoError(t, Check(g, a, OnTurn(models.PhasePlaying)))
	assert.True(t, apperr.Is(Check(g, uuid.Nil, OnTurn(models.PhasePlaying)), apperr.Unauthenticated))
	assert.True(t, apperr.Is(Check(g, uuid.New(), OnTurn(models.PhasePlaying)), apperr.PermissionDenied))
	assert.True(t, apperr.Is(Check(g, b, OnTurn(models.PhasePlaying)), apperr.PermissionDenied))

	// phase is checked before the turn holder
	assert.True(t, apperr.Is(Check(g, b, OnTurn(models.PhaseScoring)), apperr.FailedPrecondition))
}

func TestCheckAnySeat(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	g := newGame(a, b)
	g.Round().Phase = models.PhaseSetup

	assert.NoError(t, Check(g, b, AnySeat(models.PhaseSetup)))
	assert.True(t, apperr.Is(Check(g, b, AnySeat(models.PhasePlaying)), apperr.FailedPrecondition))
}

func TestCheckTerminalAndUnstarted(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	g := newGame(a, b)
	g.Status = models.StatusFinished
	assert.True(t, apperr.Is(Check(g, a, OnTurn(models.PhasePlaying)), apperr.FailedPrecondition))
	assert.True(t, apperr.Is(Participant(g, a), apperr.FailedPrecondition))

	g = newGame(a, b)
	g.Rounds = nil
	assert.True(t, apperr.Is(Check(g, a, OnTurn(models.PhasePlaying)), apperr.FailedPrecondition))
	assert.NoError(t, Participant(g, a))
}
