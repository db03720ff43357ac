package database

import (
	"context"
	"time"
)

const createDayLock = `
INSERT INTO day_locks (lock_date)
VALUES ($1)
RETURNING id, lock_date, created_at
`

func (q *Queries) CreateDayLock(ctx context.Context, lockDate time.Time) (DayLock, error) {
	row := q.db.QueryRow(ctx, createDayLock, lockDate)
	var d DayLock
	err := row.Scan(&d.ID, &d.LockDate, &d.CreatedAt)
	return d, err
}

const getDayLockByDate = `
SELECT id, lock_date, created_at
FROM day_locks
WHERE lock_date = $1
`

func (q *Queries) GetDayLockByDate(ctx context.Context, lockDate time.Time) (DayLock, error) {
	row := q.db.QueryRow(ctx, getDayLockByDate, lockDate)
	var d DayLock
	err := row.Scan(&d.ID, &d.LockDate, &d.CreatedAt)
	return d, err
}

type SetOrderingLockParams struct {
	LockDate time.Time
	Locked   bool
}

const setOrderingLock = `
INSERT INTO ordering_locks (lock_date, locked)
VALUES ($1, $2)
ON CONFLICT (lock_date) DO UPDATE SET locked = $2, updated_at = now()
RETURNING id, lock_date, locked, created_at, updated_at
`

func (q *Queries) SetOrderingLock(ctx context.Context, arg SetOrderingLockParams) (OrderingLock, error) {
	row := q.db.QueryRow(ctx, setOrderingLock, arg.LockDate, arg.Locked)
	var l OrderingLock
	err := row.Scan(&l.ID, &l.LockDate, &l.Locked, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

const getOrderingLock = `
SELECT id, lock_date, locked, created_at, updated_at
FROM ordering_locks
WHERE lock_date = $1
`

func (q *Queries) GetOrderingLock(ctx context.Context, lockDate time.Time) (OrderingLock, error) {
	row := q.db.QueryRow(ctx, getOrderingLock, lockDate)
	var l OrderingLock
	err := row.Scan(&l.ID, &l.LockDate, &l.Locked, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}
