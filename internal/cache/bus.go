// internal/cache/bus.go
package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/stakes/internal/models"
)

// ActionRecord is one committed action as the historian stores it.
type ActionRecord struct {
	GameID        uuid.UUID      `json:"game_id"`
	Round         int            `json:"round"`
	ActionIndex   int            `json:"action_index"`
	ActorUserID   uuid.UUID      `json:"actor_user_id"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload,omitempty"`
	Timestamp     int64          `json:"timestamp"`
}

// RecordsSince converts the actions appended to g since before into queue records. before maps
// round number to how many actions it held when the transaction began.
func RecordsSince(g *models.Game, before map[int]int) []ActionRecord {
	var out []ActionRecord
	for n := 1; n <= g.CurrentRound; n++ {
		r := g.Rounds[n]
		if r == nil {
			continue
		}
		for i := before[n]; i < len(r.Actions); i++ {
			a := r.Actions[i]
			out = append(out, ActionRecord{
				GameID:        g.ID,
				Round:         n,
				ActionIndex:   a.Index,
				ActorUserID:   a.Actor,
				ActionType:    a.Type,
				ActionPayload: a.Payload,
				Timestamp:     a.At.UnixMilli(),
			})
		}
	}
	return out
}

// ActionCounts snapshots how many actions each round holds.
func ActionCounts(g *models.Game) map[int]int {
	counts := make(map[int]int, len(g.Rounds))
	for n, r := range g.Rounds {
		counts[n] = len(r.Actions)
	}
	return counts
}

// Bus carries post-commit notifications. Delivery is best effort: state always lives in the
// store, so a missed signal only delays a client until its next read.
type Bus interface {
	Notify(ctx context.Context, gameID uuid.UUID, records []ActionRecord) error
	Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan struct{}, func(), error)
}

// DefaultLocalRecords is how many recent records a Local bus retains.
const DefaultLocalRecords = 10000

// Local is an in-process Bus for single-instance deployments and tests. It keeps the most recent
// records it was given instead of queueing them.
type Local struct {
	mu      sync.Mutex
	subs    map[uuid.UUID]map[chan struct{}]struct{}
	records []ActionRecord
	// MaxRecords bounds retained records; older ones are dropped first.
	MaxRecords int
}

func NewLocal() *Local {
	return &Local{
		subs:       make(map[uuid.UUID]map[chan struct{}]struct{}),
		MaxRecords: DefaultLocalRecords,
	}
}

func (l *Local) Notify(ctx context.Context, gameID uuid.UUID, records []ActionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, records...)
	if l.MaxRecords > 0 && len(l.records) > l.MaxRecords {
		l.records = append([]ActionRecord(nil), l.records[len(l.records)-l.MaxRecords:]...)
	}
	for ch := range l.subs[gameID] {
		signal(ch)
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	if l.subs[gameID] == nil {
		l.subs[gameID] = make(map[chan struct{}]struct{})
	}
	l.subs[gameID][ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	done := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(done)
			l.mu.Lock()
			delete(l.subs[gameID], ch)
			if len(l.subs[gameID]) == 0 {
				delete(l.subs, gameID)
			}
			l.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

// Records returns a copy of everything notified so far.
func (l *Local) Records() []ActionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ActionRecord(nil), l.records...)
}

// signal does a non-blocking send; a pending signal already covers this one.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
