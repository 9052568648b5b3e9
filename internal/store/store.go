// Package store implements the optional transcript sink (spec §6.4):
// fire-and-forget persistence of completed turns to PostgreSQL. Grounded
// on the teacher's internal/trace/store.go — the same database/sql +
// pgx/v5/stdlib driver registration and embedded-migration pattern,
// narrowed here from the teacher's full session/run/span trace schema
// down to the single append-only transcripts table spec §6.4 names.
// Never persists audio.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver

	"github.com/voicecore/callcore/internal/backend"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store persists TranscriptRecords to PostgreSQL and satisfies
// backend.TranscriptSink.
type Store struct {
	db *sql.DB
}

// Open connects to connStr and applies any pending migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Write inserts one completed turn's transcript row (spec §6.4). It
// never writes audio — only the text fields TranscriptRecord carries.
func (s *Store) Write(ctx context.Context, rec backend.TranscriptRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (call_id, turn_index, trace_id, user_text, assistant_text, response_id, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.CallID, rec.TurnIndex, rec.TraceID, rec.UserText, rec.AssistantText, rec.ResponseID, rec.Instructions)
	return err
}
