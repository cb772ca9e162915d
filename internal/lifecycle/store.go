package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/model"
)

// ErrDealNotFound is returned for unknown deal ids.
var ErrDealNotFound = eris.New("lifecycle: deal not found")

// Store persists deal status changes.
type Store interface {
	// ApplyPhase runs one bulk transition in its own transaction and returns
	// the number of deals moved. Only the calendar date of today is used.
	ApplyPhase(ctx context.Context, phase Phase, today time.Time) (int64, error)

	// TransitionDeal applies a manual status change after validating it
	// against the transition table. It returns the previous status.
	TransitionDeal(ctx context.Context, dealID int64, to model.DealStatus) (model.DealStatus, error)

	// EnsureEditable returns model.ErrDealArchived for archived deals.
	EnsureEditable(ctx context.Context, dealID int64) error

	// TryLock takes the sweep lock shared by every process using the store.
	// ok is false when another sweep holds it. unlock must be called once
	// when ok is true.
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// sweepLockKey is the advisory lock id of the lifecycle sweep.
const sweepLockKey int64 = 0x6465616c73636f75

// StoreOption configures a PostgresStore.
type StoreOption func(*PostgresStore)

// WithStoreLocation sets the timezone manual activations are checked in.
func WithStoreLocation(loc *time.Location) StoreOption {
	return func(s *PostgresStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithStoreClock overrides the time source, for tests.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *PostgresStore) { s.now = now }
}

// PostgresStore implements Store.
type PostgresStore struct {
	pool db.Pool
	loc  *time.Location
	now  func() time.Time
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool, opts ...StoreOption) *PostgresStore {
	s := &PostgresStore{pool: pool, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyPhase implements Store.
func (s *PostgresStore) ApplyPhase(ctx context.Context, phase Phase, today time.Time) (int64, error) {
	sql := fmt.Sprintf(
		`UPDATE deals SET status = $2, updated_at = now() WHERE status = $3 AND %s`,
		phase.where,
	)

	var moved int64
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, today.Format(time.DateOnly), string(phase.To), string(phase.From))
		if err != nil {
			return err
		}
		moved = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, eris.Wrapf(err, "lifecycle: apply phase %s", phase.Name)
	}
	return moved, nil
}

// TransitionDeal implements Store.
func (s *PostgresStore) TransitionDeal(ctx context.Context, dealID int64, to model.DealStatus) (model.DealStatus, error) {
	var from model.DealStatus
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			current string
			deal    model.Deal
		)
		err := tx.QueryRow(ctx,
			`SELECT status, start_date, end_date FROM deals WHERE id = $1 FOR UPDATE`, dealID,
		).Scan(&current, &deal.StartDate, &deal.EndDate)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDealNotFound
		}
		if err != nil {
			return eris.Wrapf(err, "lifecycle: lock deal %d", dealID)
		}

		from = model.DealStatus(current)
		deal.ID = dealID
		deal.Status = from
		if err := model.ValidateManualTransition(deal, to, s.now().In(s.loc)); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE deals SET status = $2, updated_at = now() WHERE id = $1`, dealID, string(to))
		return eris.Wrapf(err, "lifecycle: update deal %d", dealID)
	})
	if err != nil {
		return from, err
	}
	return from, nil
}

// EnsureEditable implements Store.
func (s *PostgresStore) EnsureEditable(ctx context.Context, dealID int64) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM deals WHERE id = $1`, dealID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDealNotFound
	}
	if err != nil {
		return eris.Wrapf(err, "lifecycle: get deal %d", dealID)
	}
	if model.DealStatus(status).Terminal() {
		return model.ErrDealArchived
	}
	return nil
}

// TryLock implements Store with a transaction-scoped advisory lock. The
// transaction stays open until unlock, so the lock is also released if the
// process dies mid-sweep.
func (s *PostgresStore) TryLock(ctx context.Context) (func(), bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, eris.Wrap(err, "lifecycle: begin sweep lock")
	}
	release := func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }

	var ok bool
	if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock($1)`, sweepLockKey).Scan(&ok); err != nil {
		release()
		return nil, false, eris.Wrap(err, "lifecycle: acquire sweep lock")
	}
	if !ok {
		release()
		return nil, false, nil
	}
	return release, true, nil
}
