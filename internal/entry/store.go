package entry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var (
	// ErrNotFound indicates the entry id does not exist.
	ErrNotFound = errors.New("entry not found")
	// ErrShortcutTaken indicates another entry already owns the shortcut.
	ErrShortcutTaken = errors.New("shortcut already assigned to another entry")
	// ErrUnknownContextType indicates an unsupported matching strategy.
	ErrUnknownContextType = errors.New("unknown context type")
)

// Store owns the durable entry collection in a SQLite database. It is the
// single writer; every mutation fires the registered change listeners with
// a fresh snapshot so read paths never touch the database themselves.
type Store struct {
	conn   *sql.DB
	dbPath string

	mu        sync.Mutex
	listeners []func([]Entry)
}

// OpenStore opens or creates the entry database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("store path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open entry database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize entry schema: %w", err)
	}
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			label TEXT,
			context_type TEXT NOT NULL,
			context_key TEXT,
			shortcut TEXT,
			sort_order INTEGER,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_context_type ON entries(context_type);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_shortcut ON entries(shortcut) WHERE shortcut IS NOT NULL AND shortcut != '';
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path (watched for external writers).
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// OnChange registers a listener invoked with a full snapshot after every
// mutation. Listeners run on the mutating goroutine.
func (s *Store) OnChange(fn func([]Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	snapshot, err := s.List()
	if err != nil {
		return
	}
	s.mu.Lock()
	listeners := append([]func([]Entry){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// List returns every entry with its context key pre-compiled, ordered by
// creation time for a deterministic baseline.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.conn.Query(`
		SELECT id, value, label, context_type, context_key, shortcut, sort_order, created_at
		FROM entries
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Get retrieves a single entry by id.
func (s *Store) Get(id string) (Entry, error) {
	row := s.conn.QueryRow(`
		SELECT id, value, label, context_type, context_key, shortcut, sort_order, created_at
		FROM entries WHERE id = ?
	`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Save inserts a new entry (empty ID) or updates an existing one. Shortcut
// collisions are rejected here, at write time, so the resolver never has to
// police uniqueness.
func (s *Store) Save(e Entry) (Entry, error) {
	if !KnownType(e.ContextType) {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownContextType, e.ContextType)
	}
	if e.Shortcut != "" {
		if err := s.checkShortcut(e.Shortcut, e.ID); err != nil {
			return Entry{}, err
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
		if e.CreatedAt == 0 {
			e.CreatedAt = NowMillis()
		}
		_, err := s.conn.Exec(`
			INSERT INTO entries (id, value, label, context_type, context_key, shortcut, sort_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Value, nullString(e.Label), string(e.ContextType), nullString(e.ContextKey), nullString(e.Shortcut), nullInt(e.Order), e.CreatedAt)
		if err != nil {
			return Entry{}, fmt.Errorf("insert entry: %w", err)
		}
	} else {
		result, err := s.conn.Exec(`
			UPDATE entries SET value = ?, label = ?, context_type = ?, context_key = ?, shortcut = ?, sort_order = ?
			WHERE id = ?
		`, e.Value, nullString(e.Label), string(e.ContextType), nullString(e.ContextKey), nullString(e.Shortcut), nullInt(e.Order), e.ID)
		if err != nil {
			return Entry{}, fmt.Errorf("update entry: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, e.ID)
		}
		stored, err := s.Get(e.ID)
		if err != nil {
			return Entry{}, err
		}
		e.CreatedAt = stored.CreatedAt
	}

	e.Key = Compile(e.ContextType, e.ContextKey)
	s.notify()
	return e, nil
}

// Delete removes an entry by id.
func (s *Store) Delete(id string) error {
	result, err := s.conn.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.notify()
	return nil
}

// Import inserts a batch of externally produced entries (YAML import path).
// Entries without an id are minted one; shortcut collisions fail the whole
// batch before anything is written.
func (s *Store) Import(entries []Entry) (int, error) {
	for i := range entries {
		if !KnownType(entries[i].ContextType) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownContextType, entries[i].ContextType)
		}
		if entries[i].Shortcut != "" {
			if err := s.checkShortcut(entries[i].Shortcut, entries[i].ID); err != nil {
				return 0, err
			}
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	count := 0
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt == 0 {
			e.CreatedAt = NowMillis()
		}
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO entries (id, value, label, context_type, context_key, shortcut, sort_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Value, nullString(e.Label), string(e.ContextType), nullString(e.ContextKey), nullString(e.Shortcut), nullInt(e.Order), e.CreatedAt)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("import entry %s: %w", e.ID, err)
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.notify()
	return count, nil
}

// checkShortcut rejects a shortcut already owned by a different entry.
func (s *Store) checkShortcut(combo, ownID string) error {
	var holder string
	err := s.conn.QueryRow(`SELECT id FROM entries WHERE shortcut = ? AND id != ?`, combo, ownID).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check shortcut: %w", err)
	}
	return fmt.Errorf("%w: %s held by %s", ErrShortcutTaken, combo, holder)
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var label, contextKey, shortcut sql.NullString
	var order sql.NullInt64
	var contextType string

	err := row.Scan(&e.ID, &e.Value, &label, &contextType, &contextKey, &shortcut, &order, &e.CreatedAt)
	if err != nil {
		return Entry{}, err
	}

	e.Label = label.String
	e.ContextType = ContextType(contextType)
	e.ContextKey = contextKey.String
	e.Shortcut = shortcut.String
	if order.Valid {
		v := order.Int64
		e.Order = &v
	}
	e.Key = Compile(e.ContextType, e.ContextKey)
	return e, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
