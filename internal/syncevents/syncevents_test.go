package syncevents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginEntry(id string) redis.XMessage {
	return redis.XMessage{
		ID: id,
		Values: map[string]interface{}{
			"kind":    "login",
			"client":  "c1",
			"name":    "alice",
			"room":    "r1",
			"rooms":   "2",
			"clients": "11",
			"at":      "1700000000123",
		},
	}
}

func TestPersist_InsertsBatchInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relay_events").
		WithArgs("1-0", "login", "c1", "alice", "r1", 2, 11, int64(1700000000123)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO relay_events").
		WithArgs("2-0", "login", "c1", "alice", "r1", 2, 11, int64(1700000000123)).
		WillReturnResult(sqlmock.NewResult(0, 0)) // duplicate, ignored
	mock.ExpectCommit()

	require.NoError(t, persist(context.Background(), db, []redis.XMessage{loginEntry("1-0"), loginEntry("2-0")}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relay_events").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = persist(context.Background(), db, []redis.XMessage{loginEntry("1-0")})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_MissingFieldsBecomeZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO relay_events").
		WithArgs("3-0", "connect", "", "", "", 0, 0, int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg := redis.XMessage{ID: "3-0", Values: map[string]interface{}{"kind": "connect"}}
	require.NoError(t, persist(context.Background(), db, []redis.XMessage{msg}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadBatch(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	args := &redis.XReadArgs{
		Streams: []string{"relay_events", "0-0"},
		Count:   batchSize,
		Block:   blockFor,
	}
	mock.ExpectXRead(args).SetVal([]redis.XStream{{
		Stream:   "relay_events",
		Messages: []redis.XMessage{loginEntry("1-0")},
	}})

	msgs, err := readBatch(context.Background(), rdc, "relay_events", "0-0")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "1-0", msgs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadBatch_TimeoutIsEmpty(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	mock.ExpectXRead(&redis.XReadArgs{
		Streams: []string{"relay_events", "5-0"},
		Count:   batchSize,
		Block:   blockFor,
	}).RedisNil()

	msgs, err := readBatch(context.Background(), rdc, "relay_events", "5-0")
	assert.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRun_ReturnsWhenCancelled(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Run(ctx, rdc, db, "relay_events")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
