package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/apperr"
	"github.com/jason-s-yu/stakes/internal/chess"
	"github.com/jason-s-yu/stakes/internal/game"
	"github.com/jason-s-yu/stakes/internal/models"
	"github.com/jason-s-yu/stakes/internal/service"
	"github.com/jason-s-yu/stakes/internal/trick"
)

// actionPayload is the union of every action's arguments. Each action reads only its own
// fields.
type actionPayload struct {
	Slots  []int             `json:"slots"`
	Source models.DrawSource `json:"source"`
	Slot   *int              `json:"slot"`
	Amount int               `json:"amount"`
	Pass   bool              `json:"pass"`
	Suit   string            `json:"suit"`
	Card   *models.Card      `json:"card"`
	Move   string            `json:"move"`
	Accept bool              `json:"accept"`
}

func (p actionPayload) slot() (int, error) {
	if p.Slot == nil {
		return 0, apperr.InvalidArgumentf("missing slot")
	}
	return *p.Slot, nil
}

// dispatch decodes raw for action and runs it. HTTP and WebSocket share it.
func dispatch(ctx context.Context, svc *service.Service, caller, gameID uuid.UUID, action string, raw json.RawMessage) (any, error) {
	var p actionPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperr.Wrap(apperr.InvalidArgument, err, "invalid payload for %s", action)
		}
	}

	switch action {
	case game.ActionInitialPeek:
		return svc.CompleteInitialPeek(ctx, caller, gameID, p.Slots)
	case game.ActionDraw:
		return svc.Draw(ctx, caller, gameID, p.Source)
	case game.ActionExchange:
		slot, err := p.slot()
		if err != nil {
			return nil, err
		}
		return svc.Exchange(ctx, caller, gameID, slot)
	case game.ActionDiscard:
		return svc.Discard(ctx, caller, gameID)
	case game.ActionAttemptMatch:
		slot, err := p.slot()
		if err != nil {
			return nil, err
		}
		return svc.AttemptMatch(ctx, caller, gameID, slot)
	case game.ActionSkipPower:
		return svc.SkipPower(ctx, caller, gameID)
	case game.ActionResolvePower:
		target, err := game.DecodePowerTarget(raw)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidArgument, err, "%v", err)
		}
		return svc.ResolvePower(ctx, caller, gameID, target)
	case game.ActionCall:
		return svc.Call(ctx, caller, gameID)
	case game.ActionTransitionRound:
		return svc.TransitionRound(ctx, caller, gameID)

	case trick.ActionBid:
		return svc.PlaceBid(ctx, caller, gameID, trick.BidInput{Amount: p.Amount, Pass: p.Pass})
	case trick.ActionSelectTrump:
		return svc.SelectTrump(ctx, caller, gameID, p.Suit)
	case trick.ActionPlayCard:
		if p.Card == nil {
			return nil, apperr.InvalidArgumentf("missing card")
		}
		return svc.PlayCard(ctx, caller, gameID, *p.Card)

	case chess.ActionMove:
		return svc.MakeMove(ctx, caller, gameID, p.Move)
	case chess.ActionResign:
		return svc.Resign(ctx, caller, gameID)
	case chess.ActionOfferDraw:
		return svc.OfferDraw(ctx, caller, gameID)
	case chess.ActionRespondDraw:
		return svc.RespondDraw(ctx, caller, gameID, p.Accept)
	case chess.ActionClaimTimeout:
		return svc.ClaimTimeout(ctx, caller, gameID)
	}
	return nil, apperr.InvalidArgumentf("unknown action %q", action)
}
