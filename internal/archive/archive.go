package archive

import (
	"context"
	"database/sql"
	"fmt"
	"matchlobby/internal/events/streampub"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
    id         TEXT PRIMARY KEY,
    variant    TEXT        NOT NULL,
    players    TEXT        NOT NULL,
    final_move INTEGER     NOT NULL,
    reason     TEXT        NOT NULL,
    closed_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS match_moves (
    session_id TEXT        NOT NULL,
    move_index INTEGER     NOT NULL,
    player     TEXT        NOT NULL,
    played_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_id, move_index)
);`

// EnsureSchema creates the archive tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	return nil
}

const (
	retryDelay  = time.Second
	maxRetry    = 30 * time.Second
	maxAttempts = 5
)

// Run tails the session event stream and archives finished matches and
// their moves. The archive is write-only; nothing reads it back on boot.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB) {
	t := &tailer{rdc: rdc, db: db, retryDelay: retryDelay, maxAttempts: maxAttempts}
	go t.loop(ctx)
}

type tailer struct {
	rdc *redis.Client
	db  *sql.DB

	retryDelay  time.Duration
	maxAttempts int
}

func (t *tailer) loop(ctx context.Context) {
	lastID := "0-0"
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		// block up to 2 s for new entries
		res, err := t.rdc.XRead(ctx, readArgs(lastID)).Result()
		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("archive.xread", zap.Error(err))
			if !t.wait(ctx, 1) {
				return
			}
			continue
		}
		if len(res) == 0 || len(res[0].Messages) == 0 {
			continue
		}

		entries := res[0].Messages
		if err := persist(ctx, t.db, entries); err != nil {
			failures++
			if failures < t.maxAttempts {
				zap.L().Warn("archive.persist", zap.Int("attempt", failures), zap.Error(err))
				if !t.wait(ctx, failures) {
					return
				}
				continue
			}
			// a batch that keeps failing must not wedge the tail
			zap.L().Error("archive.batch_skipped",
				zap.String("from", entries[0].ID),
				zap.String("to", entries[len(entries)-1].ID),
				zap.Int("attempts", failures),
				zap.Error(err))
		}
		failures = 0
		lastID = entries[len(entries)-1].ID
	}
}

// wait sleeps retryDelay doubled per prior attempt, capped at maxRetry.
// It returns false when ctx ends first.
func (t *tailer) wait(ctx context.Context, attempt int) bool {
	d := t.retryDelay << (attempt - 1)
	if d <= 0 || d > maxRetry {
		d = maxRetry
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func readArgs(lastID string) *redis.XReadArgs {
	return &redis.XReadArgs{
		Streams: []string{streampub.Stream, lastID},
		Count:   100,
		Block:   2000 * time.Millisecond,
	}
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insMove = `
	  INSERT INTO match_moves (session_id, move_index, player, played_at)
	       VALUES ($1, $2, $3, to_timestamp($4 / 1000.0))
	  ON CONFLICT DO NOTHING`

	const upsertMatch = `
	  INSERT INTO matches (id, variant, players, final_move, reason, closed_at)
	       VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
	  ON CONFLICT (id) DO UPDATE
	        SET final_move = EXCLUDED.final_move,
	            reason     = EXCLUDED.reason,
	            closed_at  = EXCLUDED.closed_at`

	for _, m := range msgs {
		v := m.Values
		switch field(v, "kind") {
		case "move":
			_, err = tx.ExecContext(ctx, insMove,
				field(v, "sid"), intField(v, "move"), field(v, "identity"), intField(v, "at"))
		case "closed":
			_, err = tx.ExecContext(ctx, upsertMatch,
				field(v, "sid"), field(v, "variant"), field(v, "players"),
				intField(v, "move"), field(v, "reason"), intField(v, "at"))
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("archive %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func field(v map[string]interface{}, key string) string {
	s, _ := v[key].(string)
	return s
}

func intField(v map[string]interface{}, key string) int64 {
	i, _ := strconv.ParseInt(field(v, key), 10, 64)
	return i
}
