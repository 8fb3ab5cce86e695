// Package leaselock serializes writers of a store across processes with a
// renewable row lease in the app_locks table.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/bibliograph/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("store is locked by another writer")
	ErrLost = errors.New("store lock lost")
)

const (
	defaultTTL          = 5 * time.Minute
	defaultWaitInterval = 250 * time.Millisecond
	renewAttempts       = 3
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Locker hands out store leases.
type Locker struct {
	db    dbConn
	owner string
}

// Options control a single lease. Zero values pick defaults.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	// Wait polls until the lease frees up instead of failing with ErrBusy.
	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL < time.Millisecond {
		o.TTL = defaultTTL
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = defaultWaitInterval
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

// Lease is a held store lock. Context is cancelled when the lease is
// released or lost.
type Lease struct {
	StoreID string
	Token   string
	Context context.Context

	locker *Locker
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns a Locker whose lease tokens start with owner, typically a
// worker or host name.
func New(db dbConn, owner string) *Locker {
	return &Locker{db: db, owner: owner}
}

// Key is the app_locks key of a store.
func Key(storeID string) string {
	return "store:" + storeID
}

// WithStore runs fn while holding the lease of storeID. fn's context is
// cancelled if the lease is lost.
func (l *Locker) WithStore(ctx context.Context, storeID string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, storeID, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Lock][Release] Failed to release store lock", "store", storeID, "err", err)
		}
	}()
	if err := fn(lease.Context); err != nil {
		if cause := context.Cause(lease.Context); errors.Is(cause, ErrLost) {
			return errors.Join(err, ErrLost)
		}
		return err
	}
	return nil
}

func (l *Locker) Acquire(ctx context.Context, storeID string, opts Options) (*Lease, error) {
	if storeID == "" {
		return nil, errors.New("store id is empty")
	}
	opts = opts.withDefaults()
	ttlMs := opts.TTL.Milliseconds()

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := l.owner + ":" + tok
	key := Key(storeID)

	for {
		ok, err := l.tryAcquire(ctx, key, token, ttlMs)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		logger.Debug("[Lock][Acquire] Waiting for store lock", "store", storeID)
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	lease := &Lease{
		StoreID: storeID,
		Token:   token,
		Context: leaseCtx,
		locker:  l,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	go lease.renewLoop(opts.RenewEvery, ttlMs)
	return lease, nil
}

func (l *Locker) tryAcquire(ctx context.Context, key, token string, ttlMs int64) (bool, error) {
	var got string
	err := l.db.QueryRow(ctx, tryAcquireSQL, key, token, ttlMs).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return got != "", nil
}

// Release stops renewal and frees the lock row. It is safe to call twice.
func (le *Lease) Release(ctx context.Context) error {
	le.stopOnce.Do(func() {
		close(le.stopCh)
		le.cancel(context.Canceled)
	})
	_, err := le.locker.db.Exec(ctx, releaseSQL, Key(le.StoreID), le.Token)
	return err
}

func (le *Lease) renewLoop(every time.Duration, ttlMs int64) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-le.stopCh:
			return
		case <-le.Context.Done():
			return
		case <-t.C:
			if err := le.renew(ttlMs); err != nil {
				logger.Error("[Lock][Renew] Store lock renewal failed", "store", le.StoreID, "err", err)
				le.cancel(err)
				return
			}
		}
	}
}

func (le *Lease) renew(ttlMs int64) error {
	for attempt := range renewAttempts {
		ctx, cancel := context.WithTimeout(le.Context, 15*time.Second)
		var got string
		err := le.locker.db.QueryRow(ctx, renewSQL, Key(le.StoreID), le.Token, ttlMs).Scan(&got)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		if attempt == renewAttempts-1 {
			return err
		}
		if err := sleepWithJitter(le.Context, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// An expired lease may be taken over; the holder may re-acquire its own.
const tryAcquireSQL = `
INSERT INTO app_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by = EXCLUDED.locked_by, expires_at = EXCLUDED.expires_at
WHERE app_locks.expires_at < now() OR app_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE app_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `DELETE FROM app_locks WHERE lock_key = $1 AND locked_by = $2;`
