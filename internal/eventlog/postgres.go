package eventlog

import (
	"context"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresStore is the optional relational realization of Store named by
// spec §6 ("a relational store is one valid realization"). It is never
// required by the kernel or chaos matrix — the in-memory store is what every
// run actually uses — but demonstrates the log's abstract contract is truly
// pluggable.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an already-open *sqlx.DB. Call Migrate once before
// first use.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema migrations to the target database.
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("eventlog: load embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("eventlog: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("eventlog: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("eventlog: apply migrations: %w", err)
	}
	return nil
}

const insertEventSQL = `
INSERT INTO clotho_events
	(event_id, timestamp, correlation_id, causation_id, component, handler_name,
	 trigger_message, table_name, action, payload_json, simulation_seed)
VALUES
	(:event_id, :timestamp, :correlation_id, :causation_id, :component, :handler_name,
	 :trigger_message, :table_name, :action, :payload_json, :simulation_seed)
RETURNING sequence
`

func (s *PostgresStore) Append(ctx context.Context, e Event) (int64, error) {
	rows, err := s.db.NamedQueryContext(ctx, insertEventSQL, e)
	if err != nil {
		return 0, fmt.Errorf("eventlog: append: %w", err)
	}
	defer rows.Close()
	var seq int64
	if rows.Next() {
		if err := rows.Scan(&seq); err != nil {
			return 0, fmt.Errorf("eventlog: append: scan sequence: %w", err)
		}
	}
	return seq, nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, f Filter) ([]Event, error) {
	query := `SELECT sequence, event_id, timestamp, correlation_id, causation_id, component,
		handler_name, trigger_message, table_name, action, payload_json, simulation_seed
		FROM clotho_events WHERE 1=1`
	args := map[string]any{}
	if f.CorrelationID != "" {
		query += " AND correlation_id = :correlation_id"
		args["correlation_id"] = f.CorrelationID
	}
	if f.Component != "" {
		query += " AND component = :component"
		args["component"] = f.Component
	}
	if f.Action != "" {
		query += " AND action = :action"
		args["action"] = string(f.Action)
	}
	if !f.Since.IsZero() {
		query += " AND timestamp >= :since"
		args["since"] = f.Since
	}
	if !f.Until.IsZero() {
		query += " AND timestamp <= :until"
		args["until"] = f.Until
	}
	query += " ORDER BY sequence ASC"

	rows, err := s.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read_all: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.StructScan(&e); err != nil {
			return nil, fmt.Errorf("eventlog: read_all: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.db.Close()
}
