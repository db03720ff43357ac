package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunchpack/api/internal/database"
)

var ErrDayAlreadyLocked = errors.New("day is already locked")

// DayLockStore defines the DB methods needed by the day lock engine.
type DayLockStore interface {
	GetDayLockByDate(ctx context.Context, lockDate time.Time) (database.DayLock, error)
	CreateDayLock(ctx context.Context, lockDate time.Time) (database.DayLock, error)
	LockOrdersByDate(ctx context.Context, orderDate time.Time) (int64, error)
	SetOrderingLock(ctx context.Context, arg database.SetOrderingLockParams) (database.OrderingLock, error)
	GetOrderingLock(ctx context.Context, lockDate time.Time) (database.OrderingLock, error)
}

// NewDayLockStore builds a DayLockStore bound to a transaction.
type NewDayLockStore func(database.DBTX) DayLockStore

// DayLockService finalizes a day: once locked, no orders may be placed for the
// date and all CREATED orders of the date become LOCKED.
type DayLockService struct {
	pool     TxBeginner
	newStore NewDayLockStore
}

func NewDayLockService(pool TxBeginner, newStore NewDayLockStore) *DayLockService {
	return &DayLockService{pool: pool, newStore: newStore}
}

// DayLockResult reports the outcome of locking a day.
type DayLockResult struct {
	Lock         database.DayLock
	LockedOrders int64
}

// LockDay writes the day lock and freezes the date's CREATED orders in one
// transaction. The unique index on lock_date makes a repeat lock fail with
// ErrDayAlreadyLocked rather than double-counting.
func (s *DayLockService) LockDay(ctx context.Context, date time.Time) (*DayLockResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	day := DateOf(date)

	lock, err := store.CreateDayLock(ctx, day)
	if err != nil {
		if database.IsUniqueViolation(err, "day_locks_lock_date_key") {
			return nil, ErrDayAlreadyLocked
		}
		return nil, fmt.Errorf("create day lock: %w", err)
	}

	n, err := store.LockOrdersByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("lock orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &DayLockResult{Lock: lock, LockedOrders: n}, nil
}

// SetOrderingLock toggles the manual ordering switch for a date. Unlike a day
// lock it is reversible and leaves existing orders untouched.
func (s *DayLockService) SetOrderingLock(ctx context.Context, date time.Time, locked bool) (database.OrderingLock, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderingLock{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	ol, err := store.SetOrderingLock(ctx, database.SetOrderingLockParams{
		LockDate: DateOf(date),
		Locked:   locked,
	})
	if err != nil {
		return database.OrderingLock{}, fmt.Errorf("set ordering lock: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderingLock{}, fmt.Errorf("commit tx: %w", err)
	}
	return ol, nil
}
