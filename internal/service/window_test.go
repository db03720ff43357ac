package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
)

// mockWindowStore implements WindowStore with configurable behavior.
type mockWindowStore struct {
	getDayLockByDateFn      func(ctx context.Context, lockDate time.Time) (database.DayLock, error)
	getOrderingLockFn       func(ctx context.Context, lockDate time.Time) (database.OrderingLock, error)
	getEarliestMealCutoffFn func(ctx context.Context, availableOn time.Time) (pgtype.Text, error)
}

func (m *mockWindowStore) GetDayLockByDate(ctx context.Context, lockDate time.Time) (database.DayLock, error) {
	return m.getDayLockByDateFn(ctx, lockDate)
}
func (m *mockWindowStore) GetOrderingLock(ctx context.Context, lockDate time.Time) (database.OrderingLock, error) {
	return m.getOrderingLockFn(ctx, lockDate)
}
func (m *mockWindowStore) GetEarliestMealCutoff(ctx context.Context, availableOn time.Time) (pgtype.Text, error) {
	return m.getEarliestMealCutoffFn(ctx, availableOn)
}

func openWindowStore() *mockWindowStore {
	return &mockWindowStore{
		getDayLockByDateFn: func(ctx context.Context, lockDate time.Time) (database.DayLock, error) {
			return database.DayLock{}, pgx.ErrNoRows
		},
		getOrderingLockFn: func(ctx context.Context, lockDate time.Time) (database.OrderingLock, error) {
			return database.OrderingLock{}, pgx.ErrNoRows
		},
		getEarliestMealCutoffFn: func(ctx context.Context, availableOn time.Time) (pgtype.Text, error) {
			return pgtype.Text{}, pgx.ErrNoRows
		},
	}
}

func windowAt(hhmm string) *WindowEvaluator {
	clock, _ := time.Parse("15:04", hhmm)
	now := time.Date(2026, 3, 15, clock.Hour(), clock.Minute(), 0, 0, time.Local)
	return &WindowEvaluator{now: func() time.Time { return now }}
}

func testMenu(cutoff string) *database.DailyMenu {
	return &database.DailyMenu{ID: uuid.New(), MenuDate: DateOf(testClock), CutoffHour: cutoff}
}

func TestEvaluate_OpenBeforeMenuCutoff(t *testing.T) {
	err := windowAt("10:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), nil)
	if err != nil {
		t.Fatalf("expected the window open, got: %v", err)
	}
}

func TestEvaluate_ClosedAfterMenuCutoff(t *testing.T) {
	err := windowAt("14:01").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), nil)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected ErrOrderingWindowClosed, got: %v", err)
	}
}

func TestEvaluate_CutoffInstantIsClosed(t *testing.T) {
	err := windowAt("14:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), nil)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected the cutoff instant closed, got: %v", err)
	}
}

func TestEvaluate_DayLockBeatsEverything(t *testing.T) {
	store := openWindowStore()
	store.getDayLockByDateFn = func(ctx context.Context, lockDate time.Time) (database.DayLock, error) {
		return database.DayLock{ID: uuid.New(), LockDate: lockDate}, nil
	}

	// well before the cutoff, still closed
	err := windowAt("08:00").Evaluate(context.Background(), store, testClock, testMenu("14:00"), nil)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected ErrOrderingWindowClosed, got: %v", err)
	}
}

func TestEvaluate_ManualOrderingLock(t *testing.T) {
	store := openWindowStore()
	store.getOrderingLockFn = func(ctx context.Context, lockDate time.Time) (database.OrderingLock, error) {
		return database.OrderingLock{ID: uuid.New(), LockDate: lockDate, Locked: true}, nil
	}

	err := windowAt("08:00").Evaluate(context.Background(), store, testClock, testMenu("14:00"), nil)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected ErrOrderingWindowClosed, got: %v", err)
	}
}

func TestEvaluate_ClearedOrderingLockIsOpen(t *testing.T) {
	store := openWindowStore()
	store.getOrderingLockFn = func(ctx context.Context, lockDate time.Time) (database.OrderingLock, error) {
		return database.OrderingLock{ID: uuid.New(), LockDate: lockDate, Locked: false}, nil
	}

	err := windowAt("08:00").Evaluate(context.Background(), store, testClock, testMenu("14:00"), nil)
	if err != nil {
		t.Fatalf("expected the window open, got: %v", err)
	}
}

func TestEvaluate_ServiceCutoffOverridesMenu(t *testing.T) {
	svc := &database.Service{
		ID:         uuid.New(),
		CutoffTime: pgtype.Text{String: "11:00", Valid: true},
	}

	// 12:00 is before the menu cutoff but after the service cutoff
	err := windowAt("12:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected the service cutoff to win, got: %v", err)
	}
}

func TestEvaluate_ServiceOrderStartTime(t *testing.T) {
	svc := &database.Service{
		ID:             uuid.New(),
		OrderStartTime: pgtype.Text{String: "11:30", Valid: true},
		CutoffTime:     pgtype.Text{String: "13:00", Valid: true},
	}

	if err := windowAt("10:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc); !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected closed before the start time, got: %v", err)
	}
	if err := windowAt("12:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc); err != nil {
		t.Fatalf("expected open inside the service window, got: %v", err)
	}
}

func TestEvaluate_ServiceOrderStartWithoutServiceCutoff(t *testing.T) {
	svc := &database.Service{
		ID:             uuid.New(),
		OrderStartTime: pgtype.Text{String: "11:30", Valid: true},
	}

	// The start time binds even though the cutoff comes from the menu.
	if err := windowAt("10:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc); !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected closed before the start time, got: %v", err)
	}
	if err := windowAt("12:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc); err != nil {
		t.Fatalf("expected open between start and menu cutoff, got: %v", err)
	}
	if err := windowAt("15:00").Evaluate(context.Background(), openWindowStore(), testClock, testMenu("14:00"), svc); !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected closed after the menu cutoff, got: %v", err)
	}
}

func TestEvaluate_FallsBackToMealCutoff(t *testing.T) {
	store := openWindowStore()
	store.getEarliestMealCutoffFn = func(ctx context.Context, availableOn time.Time) (pgtype.Text, error) {
		return pgtype.Text{String: "09:30", Valid: true}, nil
	}

	if err := windowAt("09:00").Evaluate(context.Background(), store, testClock, nil, nil); err != nil {
		t.Fatalf("expected open before the meal cutoff, got: %v", err)
	}
	if err := windowAt("10:00").Evaluate(context.Background(), store, testClock, nil, nil); !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected closed after the meal cutoff, got: %v", err)
	}
}

func TestEvaluate_NoCutoffSourceIsClosed(t *testing.T) {
	err := windowAt("08:00").Evaluate(context.Background(), openWindowStore(), testClock, nil, nil)
	if !errors.Is(err, ErrOrderingWindowClosed) {
		t.Fatalf("expected closed without a cutoff source, got: %v", err)
	}
}
