package db_client

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_events (
	stream_id  TEXT        PRIMARY KEY,
	kind       TEXT        NOT NULL,
	client_id  TEXT        NOT NULL,
	name       TEXT        NOT NULL DEFAULT '',
	room_id    TEXT        NOT NULL DEFAULT '',
	rooms      INTEGER     NOT NULL,
	clients    INTEGER     NOT NULL,
	at         TIMESTAMPTZ NOT NULL
)`

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := (&url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   fmt.Sprintf("%s:%s", host, port),
		Path:   database,
	}).String()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the event table if it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
