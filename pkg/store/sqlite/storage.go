// Package sqlite stores compiled stores in a single SQLite file. It backs the
// command line tool, which runs without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS stores (
	id INTEGER PRIMARY KEY,
	public_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	resolved INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS node_types (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, name TEXT NOT NULL, description TEXT NOT NULL, null_type INTEGER NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS link_types (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, name TEXT NOT NULL, description TEXT NOT NULL, null_type INTEGER NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS strings (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, text TEXT NOT NULL, node_type_id INTEGER NOT NULL, node_id INTEGER NOT NULL,
	date_inserted DATETIME NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS assertions (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, inp_string_id INTEGER NOT NULL, src_string_id INTEGER NOT NULL,
	tgt_string_id INTEGER NOT NULL, ref_string_id INTEGER NOT NULL, link_type_id INTEGER NOT NULL,
	date_inserted DATETIME NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS link_tags (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	assertion_id INTEGER NOT NULL, tag_string_id INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, node_type_id INTEGER NOT NULL, name_string_id INTEGER NOT NULL, abbr_string_id INTEGER NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS edges (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	id INTEGER NOT NULL, src_node_id INTEGER NOT NULL, tgt_node_id INTEGER NOT NULL,
	ref_node_id INTEGER NOT NULL, link_type_id INTEGER NOT NULL,
	PRIMARY KEY (store_id, id)
);
CREATE TABLE IF NOT EXISTS edge_tags (
	store_id INTEGER NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	edge_id INTEGER NOT NULL, tag_string_id INTEGER NOT NULL
);
`

// Storage implements store.Storage on a SQLite database file.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Storage = (*Storage)(nil)

// Open opens or creates the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Storage, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One writer at a time; foreign_keys is per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Storage) Close() error { return s.db.Close() }

const storeColumns = "public_id, name, status, resolved, created_at, updated_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanInfo(row scanner) (store.Info, error) {
	var info store.Info
	var status string
	err := row.Scan(&info.ID, &info.Name, &status, &info.Resolved, &info.CreatedAt, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Info{}, store.ErrNotFound
	}
	if err != nil {
		return store.Info{}, err
	}
	info.Status = store.Status(status)
	return info, nil
}

func (s *Storage) CreateStore(ctx context.Context, name string) (store.Info, error) {
	name = util.SanitizeName(name)
	id, err := util.NewID()
	if err != nil {
		return store.Info{}, fmt.Errorf("failed to generate store id: %w", err)
	}
	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO stores (public_id, name, status, resolved, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)`,
		id, name, string(store.StatusPending), now, now,
	); err != nil {
		return store.Info{}, fmt.Errorf("failed to create store: %w", err)
	}
	logger.Debug("[Store][Create] Created store", "id", id, "name", name)
	return s.GetStore(ctx, id)
}

func (s *Storage) GetStore(ctx context.Context, id string) (store.Info, error) {
	return scanInfo(s.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE public_id = ?`, id))
}

func (s *Storage) ListStores(ctx context.Context) ([]store.Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at, public_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	out := make([]store.Info, 0)
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *Storage) SetStatus(ctx context.Context, id string, status store.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stores SET status = ?, updated_at = ? WHERE public_id = ?`,
		string(status), s.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update store status: %w", err)
	}
	return requireRow(res)
}

func (s *Storage) DeleteStore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stores WHERE public_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SaveSnapshot replaces every snapshot row of the store.
func (s *Storage) SaveSnapshot(ctx context.Context, id string, snap common.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storeID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM stores WHERE public_id = ?`, id).Scan(&storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up store: %w", err)
	}

	tables := store.SnapshotTables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+tables[i].Name+` WHERE store_id = ?`, storeID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", tables[i].Name, err)
		}
	}

	for _, t := range tables {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)+1), ", ")
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO `+t.Name+` (store_id, `+strings.Join(t.Columns, ", ")+`) VALUES (`+placeholders+`)`)
		if err != nil {
			return fmt.Errorf("failed to prepare %s insert: %w", t.Name, err)
		}
		for _, r := range store.WithStoreID(storeID, t.Rows(&snap)) {
			if _, err := stmt.ExecContext(ctx, r...); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to insert into %s: %w", t.Name, err)
			}
		}
		stmt.Close()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE stores SET resolved = ?, updated_at = ? WHERE id = ?`,
		len(snap.Nodes) > 0, s.now(), storeID,
	); err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logger.Debug("[Store][Save] Saved snapshot", "id", id,
		"strings", len(snap.Strings), "assertions", len(snap.Assertions), "nodes", len(snap.Nodes))
	return nil
}

func (s *Storage) LoadSnapshot(ctx context.Context, id string) (common.Snapshot, error) {
	var snap common.Snapshot
	var storeID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM stores WHERE public_id = ?`, id).Scan(&storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, store.ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("failed to look up store: %w", err)
	}

	for _, t := range store.SnapshotTables() {
		if err := s.loadTable(ctx, storeID, t, &snap); err != nil {
			return common.Snapshot{}, err
		}
	}
	return snap, nil
}

func (s *Storage) loadTable(ctx context.Context, storeID int64, t store.Table, snap *common.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(t.Columns, ", ")+` FROM `+t.Name+` WHERE store_id = ? ORDER BY `+t.OrderBy,
		storeID,
	)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := t.Scan(snap, rows.Scan); err != nil {
			return fmt.Errorf("failed to scan %s: %w", t.Name, err)
		}
	}
	return rows.Err()
}
