// internal/deck/deck.go
package deck

import (
	"github.com/jason-s-yu/stakes/internal/models"
)

// Suits in deal order: hearts, diamonds, clubs, spades.
var Suits = []string{"H", "D", "C", "S"}

// Ranks from ace to king.
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K"}

var rankValues = map[string]int{
	"A": 1, "2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8,
	"9": 9, "T": 10, "J": 11, "Q": 12, "K": 13,
}

// Shuffler is satisfied by *rand.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// ValidSuit reports whether s is one of the four suits.
func ValidSuit(s string) bool {
	for _, v := range Suits {
		if v == s {
			return true
		}
	}
	return false
}

// ValidRank reports whether r is a known rank.
func ValidRank(r string) bool {
	_, ok := rankValues[r]
	return ok
}

// RankValue is the face value of a rank: ace 1, number cards their number, T/J/Q/K 10..13.
func RankValue(rank string) int {
	return rankValues[rank]
}

// CambiaValue is the memory game value of a card. Red kings are worth 0.
func CambiaValue(suit, rank string) int {
	if rank == "K" && (suit == "H" || suit == "D") {
		return 0
	}
	return RankValue(rank)
}

// NewCambiaDeck builds the 52-card memory game deck, unshuffled.
func NewCambiaDeck() []models.Card {
	cards := make([]models.Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, models.Card{Suit: s, Rank: r, Value: CambiaValue(s, r)})
		}
	}
	return cards
}

// NewTrickDeck builds the 52-card trick-taking deck, unshuffled. Value is the trick strength,
// 2 lowest and ace highest.
func NewTrickDeck() []models.Card {
	cards := make([]models.Card, 0, len(Suits)*len(Ranks))
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, models.Card{Suit: s, Rank: r, Value: TrickStrength(r)})
		}
	}
	return cards
}

// Shuffle permutes cards in place.
func Shuffle(cards []models.Card, r Shuffler) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// PowerFor maps a drawn rank to its power: 7/8 peek own, 9/10 peek opponent,
// J/Q blind swap, K seen swap.
func PowerFor(rank string) models.PowerType {
	switch rank {
	case "7", "8":
		return models.PowerPeekOwn
	case "9", "T":
		return models.PowerPeekOpponent
	case "J", "Q":
		return models.PowerBlindSwap
	case "K":
		return models.PowerSeenSwap
	default:
		return models.PowerNone
	}
}
