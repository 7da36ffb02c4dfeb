package redis_client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	relayClientName = "roomrelay"
	pingTimeout     = 5 * time.Second
)

// NewRedisClient dials host:port and verifies the connection with a PING.
// The relay only appends events and writes stats, so a small pool suffices.
func NewRedisClient(ctx context.Context, host string, port uint16) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(host, strconv.Itoa(int(port))),
		ClientName:  relayClientName,
		PoolSize:    8,
		DialTimeout: pingTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		err = fmt.Errorf("redis connection failed: %w", err)
		zap.L().Error("redis_connect", zap.Error(err))
		return nil, err
	}
	return rc, nil
}
