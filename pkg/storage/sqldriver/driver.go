// Package sqldriver implements storage.Driver over database/sql. The sqlite
// and postgres packages open a connection with their driver and hand it to
// New with the matching Dialect.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/seagent/pkg/storage"
)

// Dialect selects the SQL flavour of the underlying database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// timeLayout is fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS turns (
		id           TEXT PRIMARY KEY,
		chat_id      INTEGER NOT NULL,
		prompt       TEXT NOT NULL,
		response     TEXT NOT NULL,
		tool_events  TEXT NOT NULL,
		collection   TEXT NOT NULL,
		started_at   TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		err          TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS turns_chat_started_idx ON turns (chat_id, started_at)`,
}

const columns = `id, chat_id, prompt, response, tool_events, collection, started_at, completed_at, err`

// Driver provides storage operations on a *sql.DB.
type Driver struct {
	DB      *sql.DB
	dialect Dialect
}

// New creates the schema if needed and returns a Driver that owns db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	d := &Driver{DB: db, dialect: dialect}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return d, nil
}

// Put inserts a turn or replaces the stored turn with the same ID.
func (d *Driver) Put(ctx context.Context, turn *storage.Turn) error {
	if turn == nil {
		return storage.ErrNilTurn
	}

	events := turn.ToolEvents
	if events == nil {
		events = []string{}
	}
	toolEvents, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshaling tool events: %w", err)
	}

	q := d.rebind(`INSERT INTO turns (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			chat_id = excluded.chat_id,
			prompt = excluded.prompt,
			response = excluded.response,
			tool_events = excluded.tool_events,
			collection = excluded.collection,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			err = excluded.err`)

	_, err = d.DB.ExecContext(ctx, q,
		turn.ID.String(),
		turn.ChatID,
		turn.Prompt,
		turn.Response,
		string(toolEvents),
		turn.Collection,
		formatTime(turn.StartedAt),
		formatTime(turn.CompletedAt),
		turn.Err,
	)
	if err != nil {
		return fmt.Errorf("storing turn %s: %w", turn.ID, err)
	}

	return nil
}

// Get retrieves a turn by ID.
func (d *Driver) Get(ctx context.Context, id uuid.UUID) (*storage.Turn, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`SELECT `+columns+` FROM turns WHERE id = ?`), id.String())

	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading turn %s: %w", id, err)
	}

	return turn, nil
}

// ListByChat returns the turns of one chat, oldest first.
func (d *Driver) ListByChat(ctx context.Context, chatID int) ([]*storage.Turn, error) {
	return d.query(ctx, `SELECT `+columns+` FROM turns WHERE chat_id = ? ORDER BY started_at, id`, chatID)
}

// List returns every turn, oldest first.
func (d *Driver) List(ctx context.Context) ([]*storage.Turn, error) {
	return d.query(ctx, `SELECT `+columns+` FROM turns ORDER BY started_at, id`)
}

// Delete removes a turn.
func (d *Driver) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM turns WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("deleting turn %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting turn %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}

	return nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

func (d *Driver) query(ctx context.Context, q string, args ...any) ([]*storage.Turn, error) {
	rows, err := d.DB.QueryContext(ctx, d.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	turns := []*storage.Turn{}
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}

	return turns, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *Driver) rebind(q string) string {
	if d.dialect != Postgres {
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(s scanner) (*storage.Turn, error) {
	var (
		id, toolEvents, startedAt, completedAt string
		turn                                   storage.Turn
	)

	err := s.Scan(
		&id,
		&turn.ChatID,
		&turn.Prompt,
		&turn.Response,
		&toolEvents,
		&turn.Collection,
		&startedAt,
		&completedAt,
		&turn.Err,
	)
	if err != nil {
		return nil, err
	}

	if turn.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing turn id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(toolEvents), &turn.ToolEvents); err != nil {
		return nil, fmt.Errorf("parsing tool events: %w", err)
	}
	if turn.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if turn.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, err
	}

	return &turn, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
