package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/bibliograph/pkg/common"
)

// ErrNotFound is returned for unknown store ids.
var ErrNotFound = errors.New("store not found")

// Status is the compile state of a store.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompiling Status = "compiling"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Info describes a persisted store.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage persists compiled stores. A store's snapshot is replaced as a
// whole; partial updates are not supported.
type Storage interface {
	CreateStore(ctx context.Context, name string) (Info, error)
	GetStore(ctx context.Context, id string) (Info, error)
	ListStores(ctx context.Context) ([]Info, error)
	SetStatus(ctx context.Context, id string, status Status) error
	DeleteStore(ctx context.Context, id string) error

	SaveSnapshot(ctx context.Context, id string, snap common.Snapshot) error
	LoadSnapshot(ctx context.Context, id string) (common.Snapshot, error)
}
