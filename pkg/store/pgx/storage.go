package pgx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/common"
	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/OFFIS-RIT/bibliograph/pkg/store"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const copyChunkSize = 5000

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// SnapshotDBStorage implements store.Storage on PostgreSQL. Snapshot rows
// are written with COPY inside one transaction per save.
type SnapshotDBStorage struct {
	conn   pgxIConn
	dbLock sync.Mutex
}

var _ store.Storage = (*SnapshotDBStorage)(nil)

// NewSnapshotDBStorageWithConnection creates a SnapshotDBStorage using an
// existing connection or pool.
func NewSnapshotDBStorageWithConnection(conn pgxIConn) *SnapshotDBStorage {
	return &SnapshotDBStorage{conn: conn}
}

const storeColumns = "public_id, name, status, resolved, created_at, updated_at"

func scanInfo(row pgxv5.Row) (store.Info, error) {
	var info store.Info
	var status string
	err := row.Scan(&info.ID, &info.Name, &status, &info.Resolved, &info.CreatedAt, &info.UpdatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Info{}, store.ErrNotFound
	}
	if err != nil {
		return store.Info{}, err
	}
	info.Status = store.Status(status)
	return info, nil
}

func (s *SnapshotDBStorage) CreateStore(ctx context.Context, name string) (store.Info, error) {
	id, err := util.NewID()
	if err != nil {
		return store.Info{}, fmt.Errorf("failed to generate store id: %w", err)
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO stores (public_id, name, status)
		VALUES ($1, $2, $3)
		RETURNING `+storeColumns,
		id, util.SanitizeName(name), string(store.StatusPending),
	)
	info, err := scanInfo(row)
	if err != nil {
		return store.Info{}, fmt.Errorf("failed to create store: %w", err)
	}
	logger.Debug("[Store][Create] Created store", "id", info.ID, "name", info.Name)
	return info, nil
}

func (s *SnapshotDBStorage) GetStore(ctx context.Context, id string) (store.Info, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE public_id = $1`, id)
	return scanInfo(row)
}

func (s *SnapshotDBStorage) ListStores(ctx context.Context) ([]store.Info, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY created_at, public_id`)
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

func (s *SnapshotDBStorage) SetStatus(ctx context.Context, id string, status store.Status) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE stores SET status = $2, updated_at = now() WHERE public_id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update store status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteStore removes a store; its snapshot rows cascade.
func (s *SnapshotDBStorage) DeleteStore(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, `DELETE FROM stores WHERE public_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	logger.Debug("[Store][Delete] Deleted store", "id", id)
	return nil
}

// SaveSnapshot replaces every snapshot row of the store.
func (s *SnapshotDBStorage) SaveSnapshot(ctx context.Context, id string, snap common.Snapshot) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var storeID int64
	err = tx.QueryRow(ctx, `SELECT id FROM stores WHERE public_id = $1 FOR UPDATE`, id).Scan(&storeID)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}

	tables := store.SnapshotTables()
	// Dependents first.
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec(ctx, `DELETE FROM `+tables[i].Name+` WHERE store_id = $1`, storeID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", tables[i].Name, err)
		}
	}

	for _, t := range tables {
		rows := t.Rows(&snap)
		columns := append([]string{"store_id"}, t.Columns...)
		err := store.Chunks(store.WithStoreID(storeID, rows), copyChunkSize, func(chunk [][]any) error {
			n, err := tx.CopyFrom(ctx, pgxv5.Identifier{t.Name}, columns, pgxv5.CopyFromRows(chunk))
			if err != nil {
				return fmt.Errorf("failed to copy %s: %w", t.Name, err)
			}
			if int(n) != len(chunk) {
				return fmt.Errorf("mismatch in copied %s count: expected %d, got %d", t.Name, len(chunk), n)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE stores SET resolved = $2, updated_at = now() WHERE id = $1`,
		storeID, len(snap.Nodes) > 0,
	); err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logger.Debug("[Store][Save] Saved snapshot", "id", id,
		"strings", len(snap.Strings), "assertions", len(snap.Assertions), "nodes", len(snap.Nodes))
	return nil
}

func (s *SnapshotDBStorage) LoadSnapshot(ctx context.Context, id string) (common.Snapshot, error) {
	var snap common.Snapshot

	var storeID int64
	err := s.conn.QueryRow(ctx, `SELECT id FROM stores WHERE public_id = $1`, id).Scan(&storeID)
	if errors.Is(err, pgxv5.ErrNoRows) {
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

func (s *SnapshotDBStorage) loadTable(ctx context.Context, storeID int64, t store.Table, snap *common.Snapshot) error {
	query := `SELECT ` + strings.Join(t.Columns, ", ") + ` FROM ` + t.Name +
		` WHERE store_id = $1 ORDER BY ` + t.OrderBy
	rows, err := s.conn.Query(ctx, query, storeID)
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
