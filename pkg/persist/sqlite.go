// Package persist keeps the asserted triples of knowledge bases in SQLite so
// that in-memory repositories survive restarts.
//
// Only asserted triples are written; inferred triples are recomputed by the
// repository's reasoner after loading. Terms are stored in their N-Triples
// form.
package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/coolbeans/kbgraph/pkg/store"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// SQLite is a triple journal backed by a SQLite database. It is safe for
// concurrent use.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a SQLite journal.
type Option func(*SQLite)

// WithLogger sets the journal logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLite) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open creates or opens the database at path. Use ":memory:" for a
// throwaway database.
//
// The database runs in WAL mode with a single connection, so commits from
// several repositories are serialized.
func Open(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Attach loads the triples journaled for knowledge base kbID into repo and
// registers a commit hook that journals every later change. It returns the
// number of triples loaded.
func (s *SQLite) Attach(ctx context.Context, kbID string, repo *store.TripleStore) (int, error) {
	n, err := s.Load(ctx, kbID, repo)
	if err != nil {
		return 0, err
	}
	repo.AddCommitHook(s.CommitHook(kbID))
	return n, nil
}

// Load restores the triples journaled for kbID into repo without journaling
// them again.
func (s *SQLite) Load(ctx context.Context, kbID string, repo *store.TripleStore) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, predicate, object FROM triples WHERE kb = ? ORDER BY subject, predicate, object`, kbID)
	if err != nil {
		return 0, fmt.Errorf("load kb %s: %w", kbID, err)
	}
	defer rows.Close()

	var triples []store.Triple
	for rows.Next() {
		var subject, predicate, object string
		if err := rows.Scan(&subject, &predicate, &object); err != nil {
			return 0, fmt.Errorf("load kb %s: %w", kbID, err)
		}
		triple, err := decodeTriple(subject, predicate, object)
		if err != nil {
			return 0, fmt.Errorf("load kb %s: %w", kbID, err)
		}
		triples = append(triples, triple)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("load kb %s: %w", kbID, err)
	}

	if err := repo.Restore(triples); err != nil {
		return 0, fmt.Errorf("load kb %s: %w", kbID, err)
	}
	s.logger.Debug("Loaded journaled triples", slog.String("kb", kbID), slog.Int("triples", len(triples)))
	return len(triples), nil
}

// CommitHook returns a hook that journals the net changes of each commit of
// kbID in one SQLite transaction. A journal failure rejects the commit.
func (s *SQLite) CommitHook(kbID string) store.CommitHook {
	return func(ctx context.Context, changes store.ChangeSet) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("journal kb %s: %w", kbID, err)
		}
		defer tx.Rollback()

		for _, triple := range changes.Removed {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM triples WHERE kb = ? AND subject = ? AND predicate = ? AND object = ?`,
				kbID, triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key()); err != nil {
				return fmt.Errorf("journal kb %s: remove %s: %w", kbID, triple, err)
			}
		}
		for _, triple := range changes.Added {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO triples (kb, subject, predicate, object) VALUES (?, ?, ?, ?)`,
				kbID, triple.Subject.Key(), triple.Predicate.Key(), triple.Object.Key()); err != nil {
				return fmt.Errorf("journal kb %s: add %s: %w", kbID, triple, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("journal kb %s: %w", kbID, err)
		}
		s.logger.Debug("Journaled commit",
			slog.String("kb", kbID),
			slog.Int("added", len(changes.Added)),
			slog.Int("removed", len(changes.Removed)))
		return nil
	}
}

// Count returns the number of triples journaled for kbID.
func (s *SQLite) Count(ctx context.Context, kbID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples WHERE kb = ?`, kbID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count kb %s: %w", kbID, err)
	}
	return n, nil
}

// KnowledgeBases returns the IDs of the knowledge bases with journaled
// triples.
func (s *SQLite) KnowledgeBases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT kb FROM triples ORDER BY kb`)
	if err != nil {
		return nil, fmt.Errorf("list knowledge bases: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list knowledge bases: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeTriple(subject, predicate, object string) (store.Triple, error) {
	s, err := store.ParseTerm(subject)
	if err != nil {
		return store.Triple{}, err
	}
	p, err := store.ParseTerm(predicate)
	if err != nil {
		return store.Triple{}, err
	}
	o, err := store.ParseTerm(object)
	if err != nil {
		return store.Triple{}, err
	}
	return store.NewTriple(s, p, o), nil
}
