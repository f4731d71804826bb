// Package history journals completed save transfers in a local SQLite
// database so the CLI can show what was uploaded or restored, and from where.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Op is the direction of a recorded transfer.
type Op string

const (
	OpUpload   Op = "upload"
	OpDownload Op = "download"
)

// DefaultLimit is used by Recent when the caller passes a non-positive limit.
const DefaultLimit = 20

// ErrInvalidEntry is returned by Record for entries missing required fields.
var ErrInvalidEntry = errors.New("history: invalid entry")

// Entry is one completed transfer.
type Entry struct {
	ID          int64     `json:"id"`
	Op          Op        `json:"op"`
	Game        string    `json:"game"`
	Slot        int       `json:"slot"`
	LocalPath   string    `json:"local_path"`
	ArchiveID   string    `json:"archive_id"`
	ArchiveName string    `json:"archive_name"`
	BackupPath  string    `json:"backup_path,omitempty"`
	RemoteTime  time.Time `json:"remote_time,omitzero"` // zero when unknown
	RecordedAt  time.Time `json:"recorded_at"`
}

const (
	sqlInsert = `INSERT INTO transfers
		(op, game, slot, local_path, archive_id, archive_name, backup_path, remote_time, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlRecent = `SELECT id, op, game, slot, local_path, archive_id, archive_name, backup_path,
		remote_time, recorded_at
		FROM transfers ORDER BY recorded_at DESC, id DESC LIMIT ?`
)

// Store is the transfer journal.
type Store struct {
	db     *sql.DB
	clock  clockwork.Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp entries.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open opens (creating if needed) the journal at path and runs migrations.
func Open(ctx context.Context, path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: creating directory for %s: %w", path, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}

	// Sole writer.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, clock: clockwork.NewRealClock(), logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	logger.Debug("history journal opened", slog.String("path", path))

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e. RecordedAt defaults to the store's clock.
func (s *Store) Record(ctx context.Context, e Entry) error {
	switch {
	case e.Op != OpUpload && e.Op != OpDownload:
		return fmt.Errorf("%w: op %q", ErrInvalidEntry, e.Op)
	case e.Game == "":
		return fmt.Errorf("%w: empty game", ErrInvalidEntry)
	case e.Slot <= 0:
		return fmt.Errorf("%w: slot %d", ErrInvalidEntry, e.Slot)
	}

	recorded := e.RecordedAt
	if recorded.IsZero() {
		recorded = s.clock.Now()
	}

	var remote sql.NullInt64
	if !e.RemoteTime.IsZero() {
		remote = sql.NullInt64{Int64: e.RemoteTime.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, sqlInsert,
		string(e.Op), e.Game, e.Slot, e.LocalPath, e.ArchiveID, e.ArchiveName, e.BackupPath,
		remote, recorded.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("history: recording %s of %s slot %d: %w", e.Op, e.Game, e.Slot, err)
	}

	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, sqlRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent transfers: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		var (
			e        Entry
			op       string
			remote   sql.NullInt64
			recorded int64
		)

		if err := rows.Scan(&e.ID, &op, &e.Game, &e.Slot, &e.LocalPath, &e.ArchiveID,
			&e.ArchiveName, &e.BackupPath, &remote, &recorded); err != nil {
			return nil, fmt.Errorf("history: scanning transfer: %w", err)
		}

		e.Op = Op(op)
		e.RecordedAt = time.Unix(0, recorded).UTC()

		if remote.Valid {
			e.RemoteTime = time.Unix(0, remote.Int64).UTC()
		}

		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating transfers: %w", err)
	}

	return out, nil
}
