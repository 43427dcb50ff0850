package deliverylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS delivery_log (
	id           BIGSERIAL PRIMARY KEY,
	store        TEXT NOT NULL,
	ts           DOUBLE PRECISION NOT NULL,
	from_addr    TEXT NOT NULL,
	to_addrs     TEXT[] NOT NULL,
	subject      TEXT NOT NULL,
	content      TEXT NOT NULL,
	reply_to     TEXT NOT NULL,
	include_vars JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS delivery_log_store_idx ON delivery_log (store);
`

// pgLog implementa Log sobre una tabla append-only en Postgres.
type pgLog struct {
	pool *pgxpool.Pool
}

// NewPostgres conecta al DSN dado y asegura el schema.
func NewPostgres(ctx context.Context, dsn string) (*pgLog, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("deliverylog: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("deliverylog: ensure schema: %w", err)
	}
	return &pgLog{pool: pool}, nil
}

func (l *pgLog) Append(ctx context.Context, store string, e Entry) error {
	vars, err := json.Marshal(e.IncludeVars)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO delivery_log (store, ts, from_addr, to_addrs, subject, content, reply_to, include_vars)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		store, e.Timestamp, e.From, e.To, e.Subject, e.Content, e.ReplyTo, vars,
	)
	return err
}

func (l *pgLog) All(ctx context.Context, store string) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT ts, from_addr, to_addrs, subject, content, reply_to, include_vars
		 FROM delivery_log WHERE store = $1 ORDER BY id`,
		store,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var vars []byte
		if err := rows.Scan(&e.Timestamp, &e.From, &e.To, &e.Subject, &e.Content, &e.ReplyTo, &vars); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(vars, &e.IncludeVars); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *pgLog) Find(ctx context.Context, store, field, value string) (bool, error) {
	var found bool
	err := l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_log WHERE store = $1 AND include_vars->>$2 = $3)`,
		store, field, value,
	).Scan(&found)
	return found, err
}

func (l *pgLog) Close() error {
	l.pool.Close()
	return nil
}
