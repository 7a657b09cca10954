// internal/deck/scoring.go
package deck

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

// HandScore sums the values of the non-empty slots.
func HandScore(h *models.Hand) int {
	if h == nil {
		return 0
	}
	sum := 0
	for _, c := range h {
		if c != nil {
			sum += c.Value
		}
	}
	return sum
}

// RoundResult is the outcome of scoring one memory game round.
type RoundResult struct {
	Final map[uuid.UUID]int
	// CallSucceeded is nil when nobody called.
	CallSucceeded *bool
	// Winner is uuid.Nil on an exact tie for the lowest final score.
	Winner uuid.UUID
}

// ResolveRound applies the call rule to raw hand scores. A caller who is the unique minimum keeps
// their score; any other caller has their score doubled. The lowest final score wins the round.
func ResolveRound(raw map[uuid.UUID]int, order []uuid.UUID, caller uuid.UUID) RoundResult {
	final := make(map[uuid.UUID]int, len(raw))
	for id, s := range raw {
		final[id] = s
	}

	res := RoundResult{Final: final}
	if caller != uuid.Nil {
		if _, ok := raw[caller]; ok {
			ok := callerIsUniqueMinimum(raw, order, caller)
			res.CallSucceeded = &ok
			if !ok {
				final[caller] = raw[caller] * 2
			}
		}
	}
	res.Winner = uniqueLowest(final, order)
	return res
}

func callerIsUniqueMinimum(raw map[uuid.UUID]int, order []uuid.UUID, caller uuid.UUID) bool {
	mine := raw[caller]
	for _, id := range order {
		if id == caller {
			continue
		}
		if s, ok := raw[id]; ok && s <= mine {
			return false
		}
	}
	return true
}

// uniqueLowest walks order so the result never depends on map iteration.
func uniqueLowest(scores map[uuid.UUID]int, order []uuid.UUID) uuid.UUID {
	best := uuid.Nil
	bestScore := 0
	tied := false
	for _, id := range order {
		s, ok := scores[id]
		if !ok {
			continue
		}
		switch {
		case best == uuid.Nil || s < bestScore:
			best, bestScore, tied = id, s, false
		case s == bestScore:
			tied = true
		}
	}
	if tied {
		return uuid.Nil
	}
	return best
}

// GameWinner picks the lowest cumulative score, breaking ties by the most successful calls.
// An unresolved tie returns uuid.Nil.
func GameWinner(players []models.Player) uuid.UUID {
	var best *models.Player
	tied := false
	for i := range players {
		p := &players[i]
		switch {
		case best == nil || better(p, best):
			best, tied = p, false
		case !better(best, p):
			tied = true
		}
	}
	if best == nil || tied {
		return uuid.Nil
	}
	return best.UserID
}

func better(a, b *models.Player) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore < b.TotalScore
	}
	return a.SuccessfulCalls > b.SuccessfulCalls
}

// TrickStrength orders ranks within a suit for trick play, 2 lowest and ace highest.
func TrickStrength(rank string) int {
	if rank == "A" {
		return 14
	}
	return RankValue(rank)
}

// TrickWinner returns who takes a completed trick: the highest trump, else the highest card of
// the led suit.
func TrickWinner(cards []models.PlayedCard, trump string) uuid.UUID {
	if len(cards) == 0 {
		return uuid.Nil
	}
	best := cards[0]
	for _, pc := range cards[1:] {
		if beats(pc.Card, best.Card, trump) {
			best = pc
		}
	}
	return best.PlayerID
}

// beats assumes best is either of the led suit or a trump; off-suit discards never win.
func beats(c, best models.Card, trump string) bool {
	switch {
	case c.Suit == best.Suit:
		return TrickStrength(c.Rank) > TrickStrength(best.Rank)
	case c.Suit == trump:
		return true
	default:
		return false
	}
}

// FollowsSuit reports whether playing card from hand respects the follow-suit rule.
func FollowsSuit(hand []models.Card, card models.Card, led string) bool {
	if led == "" || card.Suit == led {
		return true
	}
	for _, c := range hand {
		if c.Suit == led {
			return false
		}
	}
	return true
}
