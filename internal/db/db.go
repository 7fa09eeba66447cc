package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/joestump/refselect/internal/gitref"
)

// TimeLayout is used for every timestamp column. It is fixed width so
// UTC values sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a sql.DB connection to the SQLite database.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Selection is one audited select-branches call.
type Selection struct {
	ID          int64
	PluginID    string
	URL         string // credential-free
	Pattern     string
	Status      string // "success" or "failed"
	BranchCount int
	Error       *string
	CreatedAt   string
}

// Open creates a new DB connection and runs all pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{conn: conn, now: time.Now}
	if err := d.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB for use by other packages if needed.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, d.conn, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// --- Ref listings ---

// GetRefListing returns the cached listing for (lister, url) when it was
// fetched less than maxAge ago. The boolean is false on a miss.
func (d *DB) GetRefListing(lister, url string, maxAge time.Duration) ([]gitref.NamedReference, bool, error) {
	var refsJSON, fetchedAt string
	err := d.conn.QueryRow(
		`SELECT refs_json, fetched_at FROM ref_listings WHERE lister = ? AND url = ?`,
		lister, url,
	).Scan(&refsJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get ref listing: %w", err)
	}

	fetched, err := time.Parse(TimeLayout, fetchedAt)
	if err != nil {
		return nil, false, fmt.Errorf("get ref listing: parse fetched_at: %w", err)
	}
	if d.now().Sub(fetched) >= maxAge {
		return nil, false, nil
	}

	var refs []gitref.NamedReference
	if err := json.Unmarshal([]byte(refsJSON), &refs); err != nil {
		return nil, false, fmt.Errorf("get ref listing: decode refs: %w", err)
	}
	if refs == nil {
		refs = []gitref.NamedReference{}
	}
	return refs, true, nil
}

// PutRefListing stores (or replaces) the listing for (lister, url).
func (d *DB) PutRefListing(lister, url string, refs []gitref.NamedReference) error {
	if refs == nil {
		refs = []gitref.NamedReference{}
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("put ref listing: encode refs: %w", err)
	}
	_, err = d.conn.Exec(
		`INSERT INTO ref_listings (lister, url, refs_json, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (lister, url) DO UPDATE SET refs_json = excluded.refs_json, fetched_at = excluded.fetched_at`,
		lister, url, string(data), d.now().UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("put ref listing: %w", err)
	}
	return nil
}

// --- Selections ---

// InsertSelection records a select-branches call and returns its ID.
// CreatedAt is filled in when empty.
func (d *DB) InsertSelection(s *Selection) (int64, error) {
	if s.CreatedAt == "" {
		s.CreatedAt = d.now().UTC().Format(TimeLayout)
	}
	res, err := d.conn.Exec(
		`INSERT INTO selections (plugin_id, url, pattern, status, branch_count, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.PluginID, s.URL, s.Pattern, s.Status, s.BranchCount, s.Error, s.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert selection: %w", err)
	}
	return res.LastInsertId()
}

// ListSelections returns selections newest first.
func (d *DB) ListSelections(limit, offset int) ([]Selection, error) {
	rows, err := d.conn.Query(
		`SELECT id, plugin_id, url, pattern, status, branch_count, error, created_at
		 FROM selections ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	selections := []Selection{}
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.ID, &s.PluginID, &s.URL, &s.Pattern, &s.Status, &s.BranchCount, &s.Error, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		selections = append(selections, s)
	}
	return selections, rows.Err()
}
