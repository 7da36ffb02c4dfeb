package eventlog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	streamMaxLen  = 100_000
	appendTimeout = 2 * time.Second
)

// RedisStream queues events in memory and appends them to a Redis stream from
// its own goroutine, so Record never waits on the network.
type RedisStream struct {
	rdc    *redis.Client
	stream string
	queue  chan Event
}

func NewRedisStream(rdc *redis.Client, stream string, buffer int) *RedisStream {
	if buffer < 1 {
		buffer = 1
	}
	return &RedisStream{
		rdc:    rdc,
		stream: stream,
		queue:  make(chan Event, buffer),
	}
}

func (s *RedisStream) Record(e Event) {
	select {
	case s.queue <- e:
	default:
		zap.L().Warn("eventlog.queue_full", zap.String("kind", string(e.Kind)))
	}
}

// Run drains the queue until ctx is cancelled.
func (s *RedisStream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.queue:
			if err := s.append(ctx, e); err != nil {
				zap.L().Warn("eventlog.xadd", zap.String("kind", string(e.Kind)), zap.Error(err))
			}
		}
	}
}

func (s *RedisStream) append(ctx context.Context, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()
	return s.rdc.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: e.Values(),
	}).Err()
}
