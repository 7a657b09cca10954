// internal/models/settings.go
package models

import "fmt"

// DefaultSettings returns the settings a new game of v starts from before any overrides.
func DefaultSettings(v Variant) Settings {
	switch v {
	case VariantTrick:
		return Settings{
			MaxPlayers: 4,
			Rounds:     5,
			MinBid:     7,
			MaxBid:     13,
			Scoring:    TrickScoring{MadeMultiplier: 10, FailPenaltyMultiplier: 10, DefenderWeight: 10},
		}
	case VariantChess:
		return Settings{MaxPlayers: 2, Rounds: 1, ClockSeconds: 600}
	default:
		return Settings{MaxPlayers: 4, Rounds: 1}
	}
}

// Update applies overrides from a decoded JSON object. Keys that are absent or null keep their
// current value.
func (s *Settings) Update(overrides map[string]any) error {
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := overrides[key]
		if !exists || val == nil {
			return nil
		}
		// JSON numbers decode as float64
		switch n := val.(type) {
		case float64:
			if n != float64(int(n)) {
				return fmt.Errorf("%s must be a whole number", key)
			}
			*field = int(n)
		case int:
			*field = n
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if *field < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		return nil
	}

	if err := assignInt(&s.MaxPlayers, "max_players", 2); err != nil {
		return err
	}
	if err := assignInt(&s.Rounds, "rounds", 1); err != nil {
		return err
	}
	if err := assignInt(&s.MinBid, "min_bid", 1); err != nil {
		return err
	}
	if err := assignInt(&s.MaxBid, "max_bid", 1); err != nil {
		return err
	}
	if err := assignInt(&s.Scoring.MadeMultiplier, "made_multiplier", 0); err != nil {
		return err
	}
	if err := assignInt(&s.Scoring.FailPenaltyMultiplier, "fail_penalty_multiplier", 0); err != nil {
		return err
	}
	if err := assignInt(&s.Scoring.DefenderWeight, "defender_weight", 0); err != nil {
		return err
	}
	if err := assignInt(&s.ClockSeconds, "clock_seconds", 1); err != nil {
		return err
	}
	if err := assignInt(&s.IncrementSeconds, "increment_seconds", 0); err != nil {
		return err
	}
	return nil
}

// ParseSettings applies overrides to a copy of current.
func ParseSettings(overrides map[string]any, current Settings) (Settings, error) {
	s := current
	err := s.Update(overrides)
	return s, err
}
