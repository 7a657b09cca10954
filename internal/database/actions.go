// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/stakes/internal/cache"
)

const actionsSchema = `
CREATE TABLE IF NOT EXISTS game_actions (
	game_id        UUID NOT NULL,
	round          INT NOT NULL,
	action_index   INT NOT NULL,
	actor_user_id  UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	occurred_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, round, action_index)
);
`

// ActionLog is the historian's append-only archive of committed actions.
type ActionLog struct {
	pool *pgxpool.Pool
}

func NewActionLog(pool *pgxpool.Pool) *ActionLog {
	return &ActionLog{pool: pool}
}

// EnsureSchema creates the game_actions table if it is missing.
func (l *ActionLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, actionsSchema); err != nil {
		return fmt.Errorf("ensure game_actions schema: %w", err)
	}
	return nil
}

// WriteActions inserts recs in one transaction. Records already archived are skipped, so a
// batch redelivered after a crash is harmless.
func (l *ActionLog) WriteActions(ctx context.Context, recs []cache.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range recs {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("marshal payload for %s/%d: %w", rec.GameID, rec.ActionIndex, err)
			}
			batch.Queue(`
				INSERT INTO game_actions (
					game_id, round, action_index, actor_user_id, action_type, action_payload, occurred_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT DO NOTHING`,
				rec.GameID, rec.Round, rec.ActionIndex, rec.ActorUserID, rec.ActionType, payload,
				time.UnixMilli(rec.Timestamp).UTC(),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
