package syncstats

import (
	"context"
	"strconv"
	"time"

	"roomrelay/internal/rooms"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	statsKey     = "relay:stats"
	roomSizesKey = "relay:room_sizes"
	pipeTimeout  = 1500 * time.Millisecond
)

// Source is satisfied by the websocket hub.
type Source interface {
	Snapshot(ctx context.Context) (rooms.Stats, error)
}

// Run mirrors the relay statistics into Redis every interval.
func Run(ctx context.Context, rdc *redis.Client, src Source, interval time.Duration) {
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				if err := syncOnce(ctx, rdc, src, time.Now()); err != nil {
					zap.L().Warn("syncstats.sync", zap.Error(err))
				}
			}
		}
	}()
}

func syncOnce(ctx context.Context, rdc *redis.Client, src Source, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, pipeTimeout)
	defer cancel()

	st, err := src.Snapshot(ctx)
	if err != nil {
		return err
	}

	// one MULTI/EXEC so readers never see totals from one tick and sizes from another
	pipe := rdc.TxPipeline()
	pipe.HSet(ctx, statsKey,
		"rooms", strconv.Itoa(st.Rooms),
		"clients", strconv.Itoa(st.Clients),
		"connected", strconv.Itoa(st.Connected),
		"updated_at", strconv.FormatInt(now.Unix(), 10),
	)
	pipe.Del(ctx, roomSizesKey)
	if len(st.RoomSizes) > 0 {
		sizes := make([]any, len(st.RoomSizes))
		for i, n := range st.RoomSizes {
			sizes[i] = strconv.Itoa(n)
		}
		pipe.RPush(ctx, roomSizesKey, sizes...)
	}
	_, err = pipe.Exec(ctx)
	return err
}
