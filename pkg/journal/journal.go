package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"

	"github.com/bookmart/nestable-sdk-go/pkg/nestable"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	registry TEXT NOT NULL,
	type TEXT NOT NULL,
	token_id INTEGER NOT NULL DEFAULT 0,
	generation INTEGER NOT NULL,
	occurred_at TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS events_registry_seq ON events(registry, seq);
`

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// DefaultPageSize caps Events when no limit is given.
const DefaultPageSize = 500

// Entry is one journaled event with its position in the journal.
type Entry struct {
	Seq   int64          `json:"seq"`
	Event nestable.Event `json:"event"`
}

// Journal is an append-only event store.
type Journal struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

var _ nestable.EventSink = (*Journal)(nil)

// Open opens or creates the journal at path.
func Open(path string, logger zerolog.Logger) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	dsn := trimmed
	if trimmed != MemoryPath {
		dsn = "file:" + trimmed + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	logger.Debug().Str("path", trimmed).Msg("opening journal")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", trimmed, err)
	}
	// One connection keeps an in-memory database alive and writes ordered.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare journal schema: %w", err)
	}
	logger.Info().Str("path", trimmed).Msg("journal ready")
	return &Journal{db: db, path: trimmed, logger: logger}, nil
}

// Path returns the location the journal was opened with.
func (journal *Journal) Path() string {
	return journal.path
}

// HandleEvents appends a committed batch.
func (journal *Journal) HandleEvents(ctx context.Context, events []nestable.Event) error {
	return journal.Append(ctx, events...)
}

// Append stores events in order. Events already present are skipped.
func (journal *Journal) Append(ctx context.Context, events ...nestable.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := journal.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statement, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (id, registry, type, token_id, generation, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare journal append: %w", err)
	}
	defer statement.Close()

	for _, event := range events {
		if strings.TrimSpace(event.ID) == "" {
			return fmt.Errorf("event %s on %s has no id", event.Type, event.Registry)
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", event.ID, err)
		}
		if _, err := statement.ExecContext(
			ctx,
			event.ID,
			string(event.Registry),
			string(event.Type),
			int64(event.TokenID),
			int64(event.Generation),
			event.Timestamp.UTC().Format(time.RFC3339Nano),
			string(payload),
		); err != nil {
			return fmt.Errorf("failed to append event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal append: %w", err)
	}
	journal.logger.Debug().Int("events", len(events)).Msg("journal appended")
	return nil
}

// Events returns up to limit entries after afterSeq, oldest first. An
// empty registry matches every registry; limit <= 0 uses DefaultPageSize.
func (journal *Journal) Events(ctx context.Context, registry nestable.RegistryID, afterSeq int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	query := `SELECT seq, payload FROM events WHERE seq > ? ORDER BY seq LIMIT ?`
	args := []any{afterSeq, limit}
	if registry != "" {
		query = `SELECT seq, payload FROM events WHERE registry = ? AND seq > ? ORDER BY seq LIMIT ?`
		args = []any{string(registry), afterSeq, limit}
	}

	rows, err := journal.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			entry   Entry
			payload string
		)
		if err := rows.Scan(&entry.Seq, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &entry.Event); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %d: %w", entry.Seq, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return entries, nil
}

// Count returns the number of journaled events.
func (journal *Journal) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := journal.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal events: %w", err)
	}
	return count, nil
}

// Close releases the database.
func (journal *Journal) Close() error {
	return journal.db.Close()
}
