package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
)

var ErrOrderingWindowClosed = errors.New("ordering window is closed for this date")

// WindowStore defines the DB methods the window evaluator needs.
// Satisfied by *database.Queries (and its WithTx variant).
type WindowStore interface {
	GetDayLockByDate(ctx context.Context, lockDate time.Time) (database.DayLock, error)
	GetOrderingLock(ctx context.Context, lockDate time.Time) (database.OrderingLock, error)
	GetEarliestMealCutoff(ctx context.Context, availableOn time.Time) (pgtype.Text, error)
}

// WindowEvaluator decides whether new orders are acceptable for a date.
// Cutoff sources are consulted in priority order: persisted day lock, manual
// ordering lock, the owning service's window, the daily menu's cutoff hour,
// and finally the earliest legacy meal cutoff for the date.
type WindowEvaluator struct {
	now func() time.Time
}

func NewWindowEvaluator() *WindowEvaluator {
	return &WindowEvaluator{now: time.Now}
}

// Evaluate returns nil when ordering is open, ErrOrderingWindowClosed when it
// is not. menu and svc are optional; pass what the caller has resolved.
func (e *WindowEvaluator) Evaluate(ctx context.Context, store WindowStore, date time.Time, menu *database.DailyMenu, svc *database.Service) error {
	day := DateOf(date)

	// A persisted day lock beats all cutoff math.
	if _, err := store.GetDayLockByDate(ctx, day); err == nil {
		return ErrOrderingWindowClosed
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get day lock: %w", err)
	}

	if lock, err := store.GetOrderingLock(ctx, day); err == nil {
		if lock.Locked {
			return ErrOrderingWindowClosed
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get ordering lock: %w", err)
	}

	now := e.now()

	// A service order-start applies whether or not the service also carries
	// its own cutoff.
	if svc != nil && svc.OrderStartTime.Valid {
		if start, ok := atTimeOfDay(day, svc.OrderStartTime.String); ok && now.Before(start) {
			return ErrOrderingWindowClosed
		}
	}

	var cutoffSrc string
	if svc != nil && svc.CutoffTime.Valid {
		cutoffSrc = svc.CutoffTime.String
	} else if menu != nil && menu.CutoffHour != "" {
		cutoffSrc = menu.CutoffHour
	} else {
		earliest, err := store.GetEarliestMealCutoff(ctx, day)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("get meal cutoff: %w", err)
		}
		if !earliest.Valid {
			// No cutoff source resolves for this date.
			return ErrOrderingWindowClosed
		}
		cutoffSrc = earliest.String
	}

	cutoff, ok := atTimeOfDay(day, cutoffSrc)
	if !ok {
		return ErrOrderingWindowClosed
	}

	// The cutoff instant itself is already closed.
	if !now.Before(cutoff) {
		return ErrOrderingWindowClosed
	}
	return nil
}
