package archive

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndListBySession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prompts := []string{"SELECT * FROM t", "SELECT a FROM t WHERE b=1"}
	for i, p := range prompts {
		ex := &Exchange{
			SessionID: "0192a4c1-7d3e-7f00-8a1b-2c3d4e5f6a7b",
			Sequence:  i + 1,
			Backend:   "remote",
			Model:     "gpt-3.5-turbo",
			Prompt:    p,
			Response:  "df.select('*')",
		}
		if err := store.Record(ctx, ex); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if ex.ID == 0 || ex.CreatedAt.IsZero() {
			t.Errorf("Record did not fill ID/CreatedAt: %+v", ex)
		}
	}
	if err := store.Record(ctx, &Exchange{SessionID: "other", Sequence: 1, Backend: "local", Model: "m", Prompt: "x", Response: "y"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.List(ctx, ListOptions{SessionID: "0192a4c1-7d3e-7f00-8a1b-2c3d4e5f6a7b"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List returned %d exchanges, want 2", len(got))
	}
	for i, ex := range got {
		if ex.Prompt != prompts[i] || ex.Sequence != i+1 {
			t.Errorf("exchange %d = %+v", i, ex)
		}
	}

	short, err := store.List(ctx, ListOptions{SessionID: "0192a4c1"})
	if err != nil {
		t.Fatalf("List by prefix: %v", err)
	}
	if len(short) != 2 {
		t.Errorf("List by short ID returned %d exchanges, want 2", len(short))
	}

	all, err := store.List(ctx, ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "other" {
		t.Fatalf("List all newest first = %+v", all)
	}
}

func TestListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, &Exchange{SessionID: "s", Sequence: i, Backend: "remote", Model: "m", Prompt: "p", Response: "r"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := store.List(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Record(ctx, &Exchange{SessionID: "s", Sequence: 1, Backend: "remote", Model: "m",
		Prompt: "SELECT name FROM employees", Response: "df.select('name')"})
	_ = store.Record(ctx, &Exchange{SessionID: "s", Sequence: 2, Backend: "remote", Model: "m",
		Prompt: "SELECT COUNT(*) FROM orders GROUP BY region", Response: "df.groupBy('region').count()"})

	results, err := store.Search(ctx, "orders", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Sequence != 2 {
		t.Fatalf("Search results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("empty snippet")
	}
}

func TestSearchSQLText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.Record(ctx, &Exchange{SessionID: "s", Sequence: 1, Backend: "remote", Model: "m",
		Prompt: "SELECT id FROM users WHERE age > 30", Response: "df.filter(df.age > 30).select('id')"})
	_ = store.Record(ctx, &Exchange{SessionID: "s", Sequence: 2, Backend: "remote", Model: "m",
		Prompt: "SELECT a FROM t WHERE b=1", Response: "df.filter(df.b == 1)"})

	tests := []struct {
		query string
		want  []int
	}{
		{"age > 30", []int{1}},
		{"users.id", nil},
		{"df.age", []int{1}},
		{"b=1", []int{2}},
		{"COUNT(*)", nil},
		{`say "hi"`, nil},
		{"> =", nil},
	}
	for _, tt := range tests {
		results, err := store.Search(ctx, tt.query, 10)
		if err != nil {
			t.Errorf("Search(%q): %v", tt.query, err)
			continue
		}
		var got []int
		for _, r := range results {
			got = append(got, r.Sequence)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Search(%q) sequences = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestFTSQuery(t *testing.T) {
	tests := map[string]string{
		"age > 30": `"age" "30"`,
		"users.id": `"users.id"`,
		`a"b`:      `"a""b"`,
		"  *  ":    "",
		"COUNT(*)": `"COUNT(*)"`,
	}
	for in, want := range tests {
		if got := ftsQuery(in); got != want {
			t.Errorf("ftsQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.Record(context.Background(), &Exchange{SessionID: "s", Sequence: 1, Backend: "remote", Model: "m", Prompt: "p", Response: "r"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	store.Close()

	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	got, err := store.List(context.Background(), ListOptions{})
	if err != nil || len(got) != 1 {
		t.Fatalf("List after reopen = %v, %v", got, err)
	}
}

func TestMigratesPreVersionDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		backend TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	db.Close()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore on legacy db: %v", err)
	}
	defer store.Close()

	ex := &Exchange{SessionID: "s", Sequence: 1, Backend: "remote", Model: "m", Prompt: "p", Response: "r", DurationMs: 120}
	if err := store.Record(context.Background(), ex); err != nil {
		t.Fatalf("Record after migration: %v", err)
	}
	var version int
	if err := store.db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("version = %d, want %d", version, schemaVersion)
	}
}

func TestOpen(t *testing.T) {
	store, err := Open(false, "")
	if err != nil {
		t.Fatalf("Open disabled: %v", err)
	}
	if _, ok := store.(*NoopStore); !ok {
		t.Errorf("disabled archive = %T, want *NoopStore", store)
	}

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err = Open(true, "")
	if err != nil {
		t.Fatalf("Open enabled: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("enabled archive = %T, want *SQLiteStore", store)
	}
}
