// internal/guard/guard.go
package guard

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/models"
)

// Requirement describes who may perform an action and when.
type Requirement struct {
	Phase models.Phase
	// AnySeat lets any participant act regardless of whose turn it is.
	AnySeat bool
}

// OnTurn requires phase and the caller to hold the turn.
func OnTurn(phase models.Phase) Requirement {
	return Requirement{Phase: phase}
}

// AnySeat requires phase only.
func AnySeat(phase models.Phase) Requirement {
	return Requirement{Phase: phase, AnySeat: true}
}

// Check validates caller against g in order: participant, status, phase, turn holder.
// It must run inside the transaction that will commit the action.
func Check(g *models.Game, caller uuid.UUID, req Requirement) error {
	if caller == uuid.Nil {
		return apperr.New(apperr.Unauthenticated, "missing caller identity")
	}
	if !g.IsParticipant(caller) {
		return apperr.PermissionDeniedf("not a participant in game %s", g.ID)
	}
	if g.IsTerminal() {
		return apperr.FailedPreconditionf("game is %s", g.Status)
	}
	r := g.Round()
	if r == nil {
		return apperr.FailedPreconditionf("game has not started")
	}
	if r.Phase != req.Phase {
		return apperr.FailedPreconditionf("action requires phase %s, round is in %s", req.Phase, r.Phase)
	}
	if !req.AnySeat && r.CurrentTurnPlayerID != caller {
		return apperr.PermissionDeniedf("not your turn")
	}
	return nil
}

// Participant only checks membership and that the game is still live.
func Participant(g *models.Game, caller uuid.UUID) error {
	if caller == uuid.Nil {
		return apperr.New(apperr.Unauthenticated, "missing caller identity")
	}
	if !g.IsParticipant(caller) {
		return apperr.PermissionDeniedf("not a participant in game %s", g.ID)
	}
	if g.IsTerminal() {
		return apperr.FailedPreconditionf("game is %s", g.Status)
	}
	return nil
}
