// internal/game/rounds.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/deck"
	"github.com/jason-s-yu/stakes/internal/guard"
	"github.com/jason-s-yu/stakes/internal/models"
)

// TransitionRound scores a round in Scoring and then either deals the next round, with the
// starter rotating one seat, or finishes the game.
func TransitionRound(g *models.Game, caller uuid.UUID, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhaseScoring)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}

	order := g.PlayerIDs()
	raw := make(map[uuid.UUID]int, len(order))
	for _, id := range order {
		raw[id] = deck.HandScore(cr.Hands[id])
	}
	res := deck.ResolveRound(raw, order, cr.CallerID)

	cr.RawScores = raw
	cr.FinalScores = res.Final
	cr.CallSucceeded = res.CallSucceeded
	cr.RoundWinner = res.Winner
	for i := range g.Players {
		p := &g.Players[i]
		p.TotalScore += res.Final[p.UserID]
		if p.UserID == cr.CallerID && res.CallSucceeded != nil && *res.CallSucceeded {
			p.SuccessfulCalls++
		}
	}

	payload := map[string]any{"final_scores": scoresByID(res.Final)}
	if res.Winner != uuid.Nil {
		payload["round_winner"] = res.Winner
	}
	r.Record(caller, ActionTransitionRound, payload, env.Now)
	r.Phase = models.PhaseComplete

	if r.Number < g.Settings.Rounds {
		StartRound(g, r.Number+1, g.NextPlayer(cr.Starter), env)
		return Result{RoundOver: true}, nil
	}

	g.Status = models.StatusFinished
	if winner := deck.GameWinner(g.Players); winner != uuid.Nil {
		g.Outcome = &models.Outcome{Kind: models.OutcomeWinner, WinnerID: winner, Reason: "lowest total score"}
	} else {
		g.Outcome = &models.Outcome{Kind: models.OutcomeDraw, Reason: "tied total score"}
	}
	return Result{RoundOver: true, GameOver: true}, nil
}

// scoresByID keys scores by string so the action payload survives a JSON round trip unchanged.
func scoresByID(scores map[uuid.UUID]int) map[string]int {
	out := make(map[string]int, len(scores))
	for id, s := range scores {
		out[id.String()] = s
	}
	return out
}
