package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/showctl/internal/domain/telemetry"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS pending_events (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT    NOT NULL,
	timestamp       INTEGER NOT NULL,
	user_id         TEXT    NOT NULL,
	parameters      TEXT    NOT NULL,
	user_properties TEXT    NOT NULL
)`

// SQLiteStore keeps pending events in a SQLite table ordered by insert.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns every row in insert order. Undecodable rows make the whole
// record corrupt.
func (s *SQLiteStore) Load(ctx context.Context) ([]telemetry.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, timestamp, user_id, parameters, user_properties FROM pending_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []telemetry.Event
	for rows.Next() {
		var (
			e             telemetry.Event
			params, props string
		)
		if err := rows.Scan(&e.Name, &e.Timestamp, &e.UserID, &params, &props); err != nil {
			return nil, fmt.Errorf("scan pending event: %w", err)
		}
		if e.Parameters, err = decodeMap(params); err != nil {
			return nil, fmt.Errorf("%w: parameters: %v", ErrCorruptStore, err)
		}
		if e.UserProperties, err = decodeMap(props); err != nil {
			return nil, fmt.Errorf("%w: user properties: %v", ErrCorruptStore, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending events: %w", err)
	}
	return out, nil
}

// Save inserts events after any existing rows in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, events []telemetry.Event) (err error) {
	if len(events) == 0 {
		return ctx.Err()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pending_events (name, timestamp, user_id, parameters, user_properties) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range events {
		e := &events[i]
		params, err := encodeMap(e.Parameters)
		if err != nil {
			return err
		}
		props, err := encodeMap(e.UserProperties)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.Name, e.Timestamp, e.UserID, params, props); err != nil {
			return fmt.Errorf("insert pending event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_events`); err != nil {
		return fmt.Errorf("clear pending events: %w", err)
	}
	return nil
}

func encodeMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode map: %w", err)
	}
	return string(b), nil
}

func decodeMap(s string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
