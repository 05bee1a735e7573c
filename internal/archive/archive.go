// Package archive keeps an optional log of completed exchanges. Entries are
// written after each interaction and listed by the history command; they
// are never loaded back into a conversation.
package archive

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// Exchange is one completed prompt/response pair.
type Exchange struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Sequence   int       `json:"sequence"`
	Backend    string    `json:"backend"`
	Model      string    `json:"model"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListOptions filters List.
type ListOptions struct {
	// SessionID restricts the list to sessions whose ID starts with it.
	SessionID string
	Limit     int
}

// SearchResult is an exchange matched by full-text search.
type SearchResult struct {
	Exchange
	Snippet string
}

// Store records and lists exchanges.
type Store interface {
	Record(ctx context.Context, ex *Exchange) error
	List(ctx context.Context, opts ListOptions) ([]Exchange, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}

// Open returns a SQLite store at path when enabled, or a NoopStore.
func Open(enabled bool, path string) (Store, error) {
	if !enabled {
		return &NoopStore{}, nil
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return NewSQLiteStore(path)
}

// DefaultPath is $XDG_DATA_HOME/sql2pyspark/archive.db, falling back to
// ~/.local/share.
func DefaultPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sql2pyspark", "archive.db"), nil
}
