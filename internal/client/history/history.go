// Package history keeps quiz results in a local SQLite database. It is
// the durable record behind the dashboard views and the payload the
// guest-to-account migration transfers.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// ErrResultNotFound is returned when no quiz result matches.
var ErrResultNotFound = errors.New("quiz result not found")

// QuizResult is one completed quiz. OwnerID is either a guest identity
// ID or an authenticated user ID; migration moves rows between the two.
type QuizResult struct {
	ID             string
	OwnerID        string
	Topic          string
	TakenAt        time.Time
	Score          int
	TotalQuestions int
	Synced         bool
}

// Store is the SQLite-backed quiz history.
type Store struct {
	db *sql.DB
}

// New opens the history database at dbPath and applies pending
// migrations. Use ":memory:" for tests.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// single writer keeps SQLite happy
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	goose.SetDialect("sqlite3")
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// SaveResult inserts or replaces a quiz result.
func (s *Store) SaveResult(ctx context.Context, r *QuizResult) error {
	query := `
		INSERT OR REPLACE INTO quiz_results (id, owner_id, topic, score, total_questions, taken_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.OwnerID,
		r.Topic,
		r.Score,
		r.TotalQuestions,
		r.TakenAt,
		r.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}

	return nil
}

// ListByOwner returns all results for an owner, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*QuizResult, error) {
	query := `
		SELECT id, owner_id, topic, score, total_questions, taken_at, synced
		FROM quiz_results
		WHERE owner_id = ?
		ORDER BY taken_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz results: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*QuizResult

	for rows.Next() {
		r := &QuizResult{}
		if err := rows.Scan(
			&r.ID,
			&r.OwnerID,
			&r.Topic,
			&r.Score,
			&r.TotalQuestions,
			&r.TakenAt,
			&r.Synced,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quiz result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, nil
}

// MarkSynced flags a result as persisted server-side.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	query := `UPDATE quiz_results SET synced = 1 WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark result synced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrResultNotFound
	}

	return nil
}

// ReassignOwner moves all rows from one owner to another and returns
// the number of rows moved. Used when guest history becomes account
// history.
func (s *Store) ReassignOwner(ctx context.Context, fromOwnerID, toOwnerID string) (int, error) {
	query := `UPDATE quiz_results SET owner_id = ? WHERE owner_id = ?`

	result, err := s.db.ExecContext(ctx, query, toOwnerID, fromOwnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign owner: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteByOwner removes all results for an owner and returns the
// number of rows removed.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `DELETE FROM quiz_results WHERE owner_id = ?`

	result, err := s.db.ExecContext(ctx, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete quiz results: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
