package syncevents

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	batchSize = 100
	blockFor  = 2 * time.Second
)

// Run tails the relay event stream and persists every entry. It returns when
// ctx is cancelled.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB, stream string) {
	lastID := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entries, err := readBatch(ctx, rdc, stream, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("syncevents.xread", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(entries) == 0 {
			continue
		}
		if err := persist(ctx, db, entries); err != nil {
			zap.L().Error("syncevents.persist", zap.Int("entries", len(entries)), zap.Error(err))
			time.Sleep(time.Second)
			continue // retry the same batch; inserts are idempotent
		}
		lastID = entries[len(entries)-1].ID
	}
}

// readBatch blocks up to blockFor waiting for entries after lastID.
func readBatch(ctx context.Context, rdc *redis.Client, stream, lastID string) ([]redis.XMessage, error) {
	res, err := rdc.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   batchSize,
		Block:   blockFor,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	return res[0].Messages, nil
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	const ins = `INSERT INTO relay_events (stream_id, kind, client_id, name, room_id, rooms, clients, at)
	             VALUES ($1, $2, $3, $4, $5, $6, $7, to_timestamp($8::double precision / 1000))
	             ON CONFLICT DO NOTHING`
	for _, m := range msgs {
		at, _ := strconv.ParseInt(field(m, "at"), 10, 64)
		roomCount, _ := strconv.Atoi(field(m, "rooms"))
		clientCount, _ := strconv.Atoi(field(m, "clients"))
		if _, err := tx.ExecContext(ctx, ins,
			m.ID,
			field(m, "kind"),
			field(m, "client"),
			field(m, "name"),
			field(m, "room"),
			roomCount,
			clientCount,
			at,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func field(m redis.XMessage, key string) string {
	s, _ := m.Values[key].(string)
	return s
}
