package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    backend TEXT NOT NULL,
    model TEXT NOT NULL,
    prompt TEXT NOT NULL,
    response TEXT NOT NULL,
    duration_ms INTEGER,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, sequence);
CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS exchanges_fts USING fts5(
    prompt,
    response,
    content='exchanges',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS exchanges_ai AFTER INSERT ON exchanges BEGIN
    INSERT INTO exchanges_fts(rowid, prompt, response) VALUES (new.id, new.prompt, new.response);
END;

CREATE TRIGGER IF NOT EXISTS exchanges_ad AFTER DELETE ON exchanges BEGIN
    INSERT INTO exchanges_fts(exchanges_fts, rowid, prompt, response) VALUES ('delete', old.id, old.prompt, old.response);
END;
`

// NewSQLiteStore opens (creating if needed) the archive at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// schemaVersion is bumped together with a new entry in migrations. Fresh
// databases get the full schema and start at this version.
const schemaVersion = 1

type migration struct {
	version     int
	description string
	up          func(db *sql.DB) error
}

var migrations = []migration{
	{
		version:     1,
		description: "add duration_ms to exchanges",
		up: func(db *sql.DB) error {
			_, err := db.Exec("ALTER TABLE exchanges ADD COLUMN duration_ms INTEGER")
			if err != nil && !isDuplicateColumnError(err) {
				return err
			}
			return nil
		},
	},
}

// initSchema is a single SELECT when the schema is already current.
func initSchema(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&currentVersion)
	if err == nil && currentVersion >= schemaVersion {
		return nil
	}
	return initSchemaFull(db, err, currentVersion)
}

func initSchemaFull(db *sql.DB, versionErr error, currentVersion int) error {
	// Check for a pre-versioning database before the base schema creates
	// the table.
	var existing int
	if err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='exchanges'
	`).Scan(&existing); err != nil {
		return fmt.Errorf("check exchanges table: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	if versionErr != nil && (versionErr == sql.ErrNoRows || strings.Contains(versionErr.Error(), "no such table")) {
		currentVersion = schemaVersion
		if existing > 0 {
			currentVersion = 0
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentVersion); err != nil {
			return fmt.Errorf("insert initial version: %w", err)
		}
	} else if versionErr != nil {
		return fmt.Errorf("get current version: %w", versionErr)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := db.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			return fmt.Errorf("update version to %d: %w", m.version, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate column") ||
		strings.Contains(errStr, "already exists")
}

// Record inserts ex and fills in its ID and CreatedAt.
func (s *SQLiteStore) Record(ctx context.Context, ex *Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (session_id, sequence, backend, model, prompt, response, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.SessionID, ex.Sequence, ex.Backend, ex.Model, ex.Prompt, ex.Response,
		ex.DurationMs, ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get exchange id: %w", err)
	}
	ex.ID = id
	return nil
}

// List returns exchanges newest first, or in sequence order when filtered
// to one session.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Exchange, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, session_id, sequence, backend, model, prompt, response, COALESCE(duration_ms, 0), created_at
		FROM exchanges`
	var args []any
	if opts.SessionID != "" {
		query += " WHERE substr(session_id, 1, ?) = ? ORDER BY sequence ASC"
		args = append(args, len(opts.SessionID), opts.SessionID)
	} else {
		query += " ORDER BY id DESC"
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.SessionID, &ex.Sequence, &ex.Backend, &ex.Model,
			&ex.Prompt, &ex.Response, &ex.DurationMs, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Search finds exchanges whose prompt or response contains every term of
// query. Terms are matched literally, so SQL punctuation is safe.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.session_id, e.sequence, e.backend, e.model, e.prompt, e.response,
		       COALESCE(e.duration_ms, 0), e.created_at,
		       snippet(exchanges_fts, -1, '**', '**', '...', 16)
		FROM exchanges_fts f
		JOIN exchanges e ON e.id = f.rowid
		WHERE exchanges_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search exchanges: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Sequence, &r.Backend, &r.Model,
			&r.Prompt, &r.Response, &r.DurationMs, &r.CreatedAt, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ftsQuery quotes each whitespace-separated term of query as an FTS5 string.
// Terms with no letters or digits tokenize to nothing and are dropped.
func ftsQuery(query string) string {
	var terms []string
	for _, term := range strings.Fields(query) {
		if !strings.ContainsFunc(term, isWordRune) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
