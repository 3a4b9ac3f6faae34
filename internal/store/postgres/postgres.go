package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/supervisr/internal/store"
)

// DB implements store.Store for PostgreSQL via the pgx stdlib driver.
// Useful when several hosts report supervision events to a shared database.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS service_events(
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			pid INTEGER NOT NULL,
			event TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_service_events_name ON service_events(name);`,
		`CREATE INDEX IF NOT EXISTS idx_service_events_occurred ON service_events(occurred_at);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) RecordEvent(ctx context.Context, rec store.Record) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO service_events(name, pid, event, detail, occurred_at)
		VALUES($1,$2,$3,$4,$5)`,
		rec.Name, rec.PID, rec.Event, rec.Detail, rec.OccurredAt.UTC())
	return err
}

func (p *DB) LastEvent(ctx context.Context, name string) (store.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT name, pid, event, detail, occurred_at FROM service_events
		WHERE name = $1 ORDER BY id DESC LIMIT 1`, name)
	var rec store.Record
	if err := row.Scan(&rec.Name, &rec.PID, &rec.Event, &rec.Detail, &rec.OccurredAt); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

func (p *DB) Events(ctx context.Context, name string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT name, pid, event, detail, occurred_at FROM service_events
		WHERE name = $1 ORDER BY id DESC LIMIT $2`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []store.Record
	for rows.Next() {
		var rec store.Record
		if err := rows.Scan(&rec.Name, &rec.PID, &rec.Event, &rec.Detail, &rec.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
