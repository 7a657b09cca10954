// internal/game/special_actions.go
package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/guard"
	"github.com/jason-s-yu/stakes/internal/models"
)

// PowerTarget is the target selection for a pending power. Exactly one variant matches each
// power type; the seen swap takes two calls, a peek then a confirm.
type PowerTarget interface {
	Power() models.PowerType
}

// PeekOwn looks at one of the actor's own cards.
type PeekOwn struct {
	Slot int `json:"slot"`
}

// PeekOpponent looks at one card of another player.
type PeekOpponent struct {
	Target models.CardRef `json:"target"`
}

// BlindSwap exchanges two cards of two different players without looking.
type BlindSwap struct {
	A models.CardRef `json:"a"`
	B models.CardRef `json:"b"`
}

// SeenSwapPeek reveals two cards of two different players to the actor.
type SeenSwapPeek struct {
	A models.CardRef `json:"a"`
	B models.CardRef `json:"b"`
}

// SeenSwapConfirm finishes a seen swap, swapping the peeked cards or leaving them.
type SeenSwapConfirm struct {
	Swap bool `json:"swap"`
}

func (PeekOwn) Power() models.PowerType         { return models.PowerPeekOwn }
func (PeekOpponent) Power() models.PowerType    { return models.PowerPeekOpponent }
func (BlindSwap) Power() models.PowerType       { return models.PowerBlindSwap }
func (SeenSwapPeek) Power() models.PowerType    { return models.PowerSeenSwap }
func (SeenSwapConfirm) Power() models.PowerType { return models.PowerSeenSwap }

// SeenSwap phases on the wire.
const (
	SeenSwapPhasePeek    = "peek"
	SeenSwapPhaseConfirm = "confirm"
)

type powerTargetJSON struct {
	Power  models.PowerType `json:"power"`
	Phase  string           `json:"phase,omitempty"`
	Slot   int              `json:"slot"`
	Target models.CardRef   `json:"target"`
	A      models.CardRef   `json:"a"`
	B      models.CardRef   `json:"b"`
	Swap   bool             `json:"swap"`
}

// DecodePowerTarget parses {"power": ..., ...} into the matching variant.
func DecodePowerTarget(raw json.RawMessage) (PowerTarget, error) {
	var in powerTargetJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode power target: %w", err)
	}
	switch in.Power {
	case models.PowerPeekOwn:
		return PeekOwn{Slot: in.Slot}, nil
	case models.PowerPeekOpponent:
		return PeekOpponent{Target: in.Target}, nil
	case models.PowerBlindSwap:
		return BlindSwap{A: in.A, B: in.B}, nil
	case models.PowerSeenSwap:
		switch in.Phase {
		case SeenSwapPhasePeek:
			return SeenSwapPeek{A: in.A, B: in.B}, nil
		case SeenSwapPhaseConfirm:
			return SeenSwapConfirm{Swap: in.Swap}, nil
		default:
			return nil, fmt.Errorf("seen swap phase must be %q or %q", SeenSwapPhasePeek, SeenSwapPhaseConfirm)
		}
	default:
		return nil, fmt.Errorf("unknown power %q", in.Power)
	}
}

// SkipPower discards the drawn power card without using it.
func SkipPower(g *models.Game, caller uuid.UUID, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	pending, ok := cr.Turn.Current().(models.AwaitingPower)
	if !ok {
		return Result{}, apperr.FailedPreconditionf("no power to skip")
	}
	cr.DiscardPile = append(cr.DiscardPile, pending.Card)
	r.Record(caller, ActionSkipPower, map[string]any{"power": pending.Power, "card": pending.Card.String()}, env.Now)

	advanceTurn(g, r)
	return Result{}, nil
}

// ResolvePower applies target to the pending power. Every variant except the seen swap peek
// ends the turn.
func ResolvePower(g *models.Game, caller uuid.UUID, target PowerTarget, env Env) (Result, error) {
	if err := guard.Check(g, caller, guard.OnTurn(models.PhasePlaying)); err != nil {
		return Result{}, err
	}
	r, cr, err := cambiaRound(g)
	if err != nil {
		return Result{}, err
	}
	if target == nil {
		return Result{}, apperr.InvalidArgumentf("missing power target")
	}

	switch st := cr.Turn.Current().(type) {
	case models.AwaitingPower:
		if target.Power() != st.Power {
			return Result{}, apperr.InvalidArgumentf("pending power is %s, got a %s target", st.Power, target.Power())
		}
		return resolvePending(g, r, caller, st, target, env)
	case models.SeenSwapPending:
		confirm, ok := target.(SeenSwapConfirm)
		if !ok {
			return Result{}, apperr.InvalidArgumentf("seen swap is waiting for a confirm")
		}
		return confirmSeenSwap(g, r, caller, st, confirm, env)
	default:
		return Result{}, apperr.FailedPreconditionf("no power to resolve")
	}
}

func resolvePending(g *models.Game, r *models.Round, caller uuid.UUID, st models.AwaitingPower, target PowerTarget, env Env) (Result, error) {
	cr := r.Cambia
	payload := map[string]any{"power": st.Power}
	var res Result

	switch t := target.(type) {
	case PeekOwn:
		ref := models.CardRef{PlayerID: caller, Slot: t.Slot}
		c, err := cardAt(g, cr, ref)
		if err != nil {
			return Result{}, err
		}
		res.Revealed = []RevealedCard{{CardRef: ref, Card: *c}}
		payload["slot"] = t.Slot

	case PeekOpponent:
		if t.Target.PlayerID == caller {
			return Result{}, apperr.InvalidArgumentf("peek opponent must target another player")
		}
		c, err := cardAt(g, cr, t.Target)
		if err != nil {
			return Result{}, err
		}
		res.Revealed = []RevealedCard{{CardRef: t.Target, Card: *c}}
		payload["target"] = t.Target

	case BlindSwap:
		if err := checkSwap(g, cr, t.A, t.B); err != nil {
			return Result{}, err
		}
		swap(cr, t.A, t.B)
		payload["a"], payload["b"] = t.A, t.B

	case SeenSwapPeek:
		if err := checkSwap(g, cr, t.A, t.B); err != nil {
			return Result{}, err
		}
		a, _ := cardAt(g, cr, t.A)
		b, _ := cardAt(g, cr, t.B)
		res.Revealed = []RevealedCard{{CardRef: t.A, Card: *a}, {CardRef: t.B, Card: *b}}
		payload["phase"] = SeenSwapPhasePeek
		payload["a"], payload["b"] = t.A, t.B

		cr.Turn.State = models.SeenSwapPending{Card: st.Card, First: t.A, Second: t.B}
		r.Record(caller, ActionResolvePower, payload, env.Now)
		return res, nil

	default:
		return Result{}, apperr.InvalidArgumentf("unsupported power target %T", target)
	}

	cr.DiscardPile = append(cr.DiscardPile, st.Card)
	payload["card"] = st.Card.String()
	r.Record(caller, ActionResolvePower, payload, env.Now)
	advanceTurn(g, r)
	return res, nil
}

func confirmSeenSwap(g *models.Game, r *models.Round, caller uuid.UUID, st models.SeenSwapPending, confirm SeenSwapConfirm, env Env) (Result, error) {
	cr := r.Cambia
	if confirm.Swap {
		if err := checkSwap(g, cr, st.First, st.Second); err != nil {
			return Result{}, err
		}
		swap(cr, st.First, st.Second)
	}
	cr.DiscardPile = append(cr.DiscardPile, st.Card)
	r.Record(caller, ActionResolvePower, map[string]any{
		"power":   models.PowerSeenSwap,
		"phase":   SeenSwapPhaseConfirm,
		"swapped": confirm.Swap,
		"card":    st.Card.String(),
	}, env.Now)

	advanceTurn(g, r)
	return Result{}, nil
}

// cardAt resolves ref to the card in that slot.
func cardAt(g *models.Game, cr *models.CambiaRound, ref models.CardRef) (*models.Card, error) {
	if !g.IsParticipant(ref.PlayerID) {
		return nil, apperr.InvalidArgumentf("player %s is not in this game", ref.PlayerID)
	}
	if ref.Slot < 0 || ref.Slot >= models.HandSize {
		return nil, apperr.InvalidArgumentf("slot %d out of range", ref.Slot)
	}
	hand := cr.Hands[ref.PlayerID]
	if hand == nil || hand[ref.Slot] == nil {
		return nil, apperr.FailedPreconditionf("slot %d of %s is empty", ref.Slot, ref.PlayerID)
	}
	return hand[ref.Slot], nil
}

// checkSwap validates a swap: two different players, both slots filled, neither hand locked
// by a call.
func checkSwap(g *models.Game, cr *models.CambiaRound, a, b models.CardRef) error {
	if a.PlayerID == b.PlayerID {
		return apperr.InvalidArgumentf("a swap must involve two different players")
	}
	for _, ref := range []models.CardRef{a, b} {
		if _, err := cardAt(g, cr, ref); err != nil {
			return err
		}
		if cr.Called() && ref.PlayerID == cr.CallerID {
			return apperr.FailedPreconditionf("the caller's hand is locked")
		}
	}
	return nil
}

func swap(cr *models.CambiaRound, a, b models.CardRef) {
	ha, hb := cr.Hands[a.PlayerID], cr.Hands[b.PlayerID]
	ha[a.Slot], hb[b.Slot] = hb[b.Slot], ha[a.Slot]
}
