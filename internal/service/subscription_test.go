package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
)

// mockSubscriptionStore implements SubscriptionStore with configurable
// behavior.
type mockSubscriptionStore struct {
	getServiceFn                func(ctx context.Context, id uuid.UUID) (database.Service, error)
	getPackFn                   func(ctx context.Context, id uuid.UUID) (database.Pack, error)
	createBusinessServiceFn     func(ctx context.Context, arg database.CreateBusinessServiceParams) (database.BusinessService, error)
	getBusinessServiceFn        func(ctx context.Context, arg database.GetBusinessServiceParams) (database.BusinessService, error)
	listBusinessServicesFn      func(ctx context.Context, businessID uuid.UUID) ([]database.BusinessService, error)
	updateBusinessServiceFn     func(ctx context.Context, arg database.UpdateBusinessServiceActiveParams) (database.BusinessService, error)
	createBusinessServicePackFn func(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error)
	listBusinessServicePacksFn  func(ctx context.Context, businessServiceID uuid.UUID) ([]database.BusinessServicePack, error)
	getActivePackFn             func(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error)
	getPackByPackFn             func(ctx context.Context, arg database.GetBusinessServicePackByPackParams) (database.BusinessServicePack, error)
	setPendingPackChangeFn      func(ctx context.Context, arg database.SetPendingPackChangeParams) (database.BusinessServicePack, error)
	clearPendingPackChangeFn    func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	deactivatePackFn            func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	activatePackFn              func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	listDuePendingChangesFn     func(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error)
}

func (m *mockSubscriptionStore) GetService(ctx context.Context, id uuid.UUID) (database.Service, error) {
	return m.getServiceFn(ctx, id)
}
func (m *mockSubscriptionStore) GetPack(ctx context.Context, id uuid.UUID) (database.Pack, error) {
	return m.getPackFn(ctx, id)
}
func (m *mockSubscriptionStore) CreateBusinessService(ctx context.Context, arg database.CreateBusinessServiceParams) (database.BusinessService, error) {
	return m.createBusinessServiceFn(ctx, arg)
}
func (m *mockSubscriptionStore) GetBusinessService(ctx context.Context, arg database.GetBusinessServiceParams) (database.BusinessService, error) {
	return m.getBusinessServiceFn(ctx, arg)
}
func (m *mockSubscriptionStore) ListBusinessServices(ctx context.Context, businessID uuid.UUID) ([]database.BusinessService, error) {
	return m.listBusinessServicesFn(ctx, businessID)
}
func (m *mockSubscriptionStore) UpdateBusinessServiceActive(ctx context.Context, arg database.UpdateBusinessServiceActiveParams) (database.BusinessService, error) {
	return m.updateBusinessServiceFn(ctx, arg)
}
func (m *mockSubscriptionStore) CreateBusinessServicePack(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error) {
	return m.createBusinessServicePackFn(ctx, arg)
}
func (m *mockSubscriptionStore) ListBusinessServicePacks(ctx context.Context, businessServiceID uuid.UUID) ([]database.BusinessServicePack, error) {
	return m.listBusinessServicePacksFn(ctx, businessServiceID)
}
func (m *mockSubscriptionStore) GetActiveBusinessServicePack(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error) {
	return m.getActivePackFn(ctx, businessServiceID)
}
func (m *mockSubscriptionStore) GetBusinessServicePackByPack(ctx context.Context, arg database.GetBusinessServicePackByPackParams) (database.BusinessServicePack, error) {
	return m.getPackByPackFn(ctx, arg)
}
func (m *mockSubscriptionStore) SetPendingPackChange(ctx context.Context, arg database.SetPendingPackChangeParams) (database.BusinessServicePack, error) {
	return m.setPendingPackChangeFn(ctx, arg)
}
func (m *mockSubscriptionStore) ClearPendingPackChange(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
	return m.clearPendingPackChangeFn(ctx, id)
}
func (m *mockSubscriptionStore) DeactivateBusinessServicePack(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
	return m.deactivatePackFn(ctx, id)
}
func (m *mockSubscriptionStore) ActivateBusinessServicePack(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
	return m.activatePackFn(ctx, id)
}
func (m *mockSubscriptionStore) ListDuePendingPackChanges(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error) {
	return m.listDuePendingChangesFn(ctx, arg)
}

// subFixture holds the ids wired into a default subscription mock.
type subFixture struct {
	businessID        uuid.UUID
	serviceID         uuid.UUID
	packID            uuid.UUID
	businessServiceID uuid.UUID
}

func newSubFixture() *subFixture {
	return &subFixture{
		businessID:        uuid.New(),
		serviceID:         uuid.New(),
		packID:            uuid.New(),
		businessServiceID: uuid.New(),
	}
}

// defaultSubscriptionStore wires a published, active service with one active
// pack and no subscription yet.
func defaultSubscriptionStore(f *subFixture) *mockSubscriptionStore {
	return &mockSubscriptionStore{
		getServiceFn: func(ctx context.Context, id uuid.UUID) (database.Service, error) {
			if id != f.serviceID {
				return database.Service{}, pgx.ErrNoRows
			}
			return database.Service{ID: f.serviceID, Name: "Lunch", IsActive: true, IsPublished: true}, nil
		},
		getPackFn: func(ctx context.Context, id uuid.UUID) (database.Pack, error) {
			if id != f.packID {
				return database.Pack{}, pgx.ErrNoRows
			}
			return database.Pack{
				ID:        f.packID,
				ServiceID: pgtype.UUID{Bytes: f.serviceID, Valid: true},
				Name:      "Express",
				IsActive:  true,
			}, nil
		},
		createBusinessServiceFn: func(ctx context.Context, arg database.CreateBusinessServiceParams) (database.BusinessService, error) {
			return database.BusinessService{ID: f.businessServiceID, BusinessID: arg.BusinessID, ServiceID: arg.ServiceID, IsActive: true}, nil
		},
		getBusinessServiceFn: func(ctx context.Context, arg database.GetBusinessServiceParams) (database.BusinessService, error) {
			return database.BusinessService{ID: f.businessServiceID, BusinessID: f.businessID, ServiceID: f.serviceID, IsActive: true}, nil
		},
		listBusinessServicesFn: func(ctx context.Context, businessID uuid.UUID) ([]database.BusinessService, error) {
			return []database.BusinessService{{ID: f.businessServiceID, BusinessID: f.businessID, ServiceID: f.serviceID, IsActive: true}}, nil
		},
		updateBusinessServiceFn: func(ctx context.Context, arg database.UpdateBusinessServiceActiveParams) (database.BusinessService, error) {
			return database.BusinessService{ID: arg.ID, BusinessID: f.businessID, ServiceID: f.serviceID, IsActive: arg.IsActive}, nil
		},
		createBusinessServicePackFn: func(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{
				ID:                uuid.New(),
				BusinessServiceID: arg.BusinessServiceID,
				PackID:            arg.PackID,
				IsActive:          arg.IsActive,
				NextPackID:        arg.NextPackID,
				EffectiveDate:     arg.EffectiveDate,
			}, nil
		},
		listBusinessServicePacksFn: func(ctx context.Context, businessServiceID uuid.UUID) ([]database.BusinessServicePack, error) {
			return nil, nil
		},
		getActivePackFn: func(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{}, pgx.ErrNoRows
		},
		getPackByPackFn: func(ctx context.Context, arg database.GetBusinessServicePackByPackParams) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{}, pgx.ErrNoRows
		},
		setPendingPackChangeFn: func(ctx context.Context, arg database.SetPendingPackChangeParams) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{ID: arg.ID, NextPackID: pgtype.UUID{Bytes: arg.NextPackID, Valid: true}}, nil
		},
		clearPendingPackChangeFn: func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{ID: id}, nil
		},
		deactivatePackFn: func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{ID: id, IsActive: false}, nil
		},
		activatePackFn: func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
			return database.BusinessServicePack{ID: id, IsActive: true}, nil
		},
		listDuePendingChangesFn: func(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error) {
			return nil, nil
		},
	}
}

func newTestSubscriptionService(store *mockSubscriptionStore) (*SubscriptionService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) SubscriptionStore { return store }
	svc := NewSubscriptionService(pool, store, newStore)
	svc.now = fixedNow
	return svc, tx
}

func TestActivateService_Success(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	packCreated := false
	store.createBusinessServicePackFn = func(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error) {
		if !arg.IsActive {
			t.Error("the initial pack must be active")
		}
		if arg.PackID != f.packID {
			t.Errorf("expected pack %s, got %s", f.packID, arg.PackID)
		}
		packCreated = true
		return database.BusinessServicePack{ID: uuid.New(), BusinessServiceID: arg.BusinessServiceID, PackID: arg.PackID, IsActive: true}, nil
	}
	svc, tx := newTestSubscriptionService(store)

	bs, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, []uuid.UUID{f.packID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bs.ID != f.businessServiceID {
		t.Errorf("unexpected business service id %s", bs.ID)
	}
	if !packCreated {
		t.Error("expected the pack row to be created")
	}
	if !tx.committed {
		t.Error("expected the transaction to commit")
	}
}

func TestActivateService_ExactlyOnePack(t *testing.T) {
	f := newSubFixture()
	svc, _ := newTestSubscriptionService(defaultSubscriptionStore(f))

	if _, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, nil); !errors.Is(err, ErrExactlyOnePack) {
		t.Fatalf("expected ErrExactlyOnePack for zero packs, got: %v", err)
	}
	if _, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, []uuid.UUID{uuid.New(), uuid.New()}); !errors.Is(err, ErrExactlyOnePack) {
		t.Fatalf("expected ErrExactlyOnePack for two packs, got: %v", err)
	}
}

func TestActivateService_ServiceNotPublished(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	store.getServiceFn = func(ctx context.Context, id uuid.UUID) (database.Service, error) {
		return database.Service{ID: f.serviceID, IsActive: true, IsPublished: false}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, []uuid.UUID{f.packID})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got: %v", err)
	}
}

func TestActivateService_PackFromOtherService(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	store.getPackFn = func(ctx context.Context, id uuid.UUID) (database.Pack, error) {
		return database.Pack{ID: f.packID, ServiceID: pgtype.UUID{Bytes: uuid.New(), Valid: true}, IsActive: true}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, []uuid.UUID{f.packID})
	if !errors.Is(err, ErrPackNotInService) {
		t.Fatalf("expected ErrPackNotInService, got: %v", err)
	}
}

func TestActivateService_AlreadyActivated(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	store.createBusinessServiceFn = func(ctx context.Context, arg database.CreateBusinessServiceParams) (database.BusinessService, error) {
		return database.BusinessService{}, uniqueViolation("business_services_business_id_service_id_key")
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.ActivateService(context.Background(), f.businessID, f.serviceID, []uuid.UUID{f.packID})
	if !errors.Is(err, ErrAlreadyActivated) {
		t.Fatalf("expected ErrAlreadyActivated, got: %v", err)
	}
}

func TestUpdateService_NonElevatedCannotToggleActive(t *testing.T) {
	f := newSubFixture()
	svc, _ := newTestSubscriptionService(defaultSubscriptionStore(f))

	active := false
	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{IsActive: &active}, false)
	if !errors.Is(err, ErrActiveToggleRestricted) {
		t.Fatalf("expected ErrActiveToggleRestricted, got: %v", err)
	}
}

func TestUpdateService_ElevatedSwapsPackImmediately(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	currentRowID := uuid.New()
	newPackID := uuid.New()
	deactivated, created := false, false

	store.getPackFn = func(ctx context.Context, id uuid.UUID) (database.Pack, error) {
		return database.Pack{ID: id, ServiceID: pgtype.UUID{Bytes: f.serviceID, Valid: true}, IsActive: true}, nil
	}
	store.getActivePackFn = func(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error) {
		return database.BusinessServicePack{ID: currentRowID, BusinessServiceID: f.businessServiceID, PackID: f.packID, IsActive: true}, nil
	}
	store.deactivatePackFn = func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
		if id != currentRowID {
			t.Errorf("expected to deactivate row %s, got %s", currentRowID, id)
		}
		deactivated = true
		return database.BusinessServicePack{ID: id, IsActive: false}, nil
	}
	store.createBusinessServicePackFn = func(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error) {
		if arg.PackID != newPackID || !arg.IsActive {
			t.Errorf("expected an active row for %s, got %+v", newPackID, arg)
		}
		created = true
		return database.BusinessServicePack{ID: uuid.New(), PackID: arg.PackID, IsActive: true}, nil
	}
	svc, tx := newTestSubscriptionService(store)

	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{PackIDs: []uuid.UUID{newPackID}}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deactivated || !created {
		t.Errorf("expected deactivate+create, got deactivated=%v created=%v", deactivated, created)
	}
	if !tx.committed {
		t.Error("expected the transaction to commit")
	}
}

func TestUpdateService_NonElevatedSchedulesForTomorrow(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	currentRowID := uuid.New()
	newPackID := uuid.New()

	store.getPackFn = func(ctx context.Context, id uuid.UUID) (database.Pack, error) {
		return database.Pack{ID: id, ServiceID: pgtype.UUID{Bytes: f.serviceID, Valid: true}, IsActive: true}, nil
	}
	store.getActivePackFn = func(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error) {
		return database.BusinessServicePack{ID: currentRowID, BusinessServiceID: f.businessServiceID, PackID: f.packID, IsActive: true}, nil
	}
	scheduled := false
	store.setPendingPackChangeFn = func(ctx context.Context, arg database.SetPendingPackChangeParams) (database.BusinessServicePack, error) {
		if arg.ID != currentRowID {
			t.Errorf("expected pending change on row %s, got %s", currentRowID, arg.ID)
		}
		if arg.NextPackID != newPackID {
			t.Errorf("expected next pack %s, got %s", newPackID, arg.NextPackID)
		}
		tomorrow := DateOf(testClock).AddDate(0, 0, 1)
		if !SameDate(arg.EffectiveDate, tomorrow) {
			t.Errorf("expected effective date %v, got %v", tomorrow, arg.EffectiveDate)
		}
		scheduled = true
		return database.BusinessServicePack{ID: arg.ID}, nil
	}
	store.deactivatePackFn = func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
		t.Error("a scheduled change must not touch the current pack")
		return database.BusinessServicePack{}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{PackIDs: []uuid.UUID{newPackID}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scheduled {
		t.Error("expected the change to be scheduled")
	}
}

func TestUpdateService_ResubmitActivePackClearsPending(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	currentRowID := uuid.New()
	cleared := false

	store.getActivePackFn = func(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error) {
		return database.BusinessServicePack{
			ID:                currentRowID,
			BusinessServiceID: f.businessServiceID,
			PackID:            f.packID,
			IsActive:          true,
			NextPackID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
		}, nil
	}
	store.clearPendingPackChangeFn = func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
		if id != currentRowID {
			t.Errorf("expected clear on row %s, got %s", currentRowID, id)
		}
		cleared = true
		return database.BusinessServicePack{ID: id, PackID: f.packID, IsActive: true}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{PackIDs: []uuid.UUID{f.packID}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cleared {
		t.Error("expected the pending change to be cleared")
	}
}

func TestUpdateService_NoCurrentPackCreatesPlaceholder(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	created := false
	store.createBusinessServicePackFn = func(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error) {
		if arg.IsActive {
			t.Error("the placeholder row must be inactive until its effective date")
		}
		if !arg.NextPackID.Valid || uuid.UUID(arg.NextPackID.Bytes) != f.packID {
			t.Error("the placeholder must carry the target as its pending pack")
		}
		created = true
		return database.BusinessServicePack{ID: uuid.New()}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{PackIDs: []uuid.UUID{f.packID}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected a placeholder pack row")
	}
}

func TestUpdateService_NotActivated(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	store.getBusinessServiceFn = func(ctx context.Context, arg database.GetBusinessServiceParams) (database.BusinessService, error) {
		return database.BusinessService{}, pgx.ErrNoRows
	}
	svc, _ := newTestSubscriptionService(store)

	_, err := svc.UpdateService(context.Background(), f.businessID, f.serviceID, UpdateServiceParams{PackIDs: []uuid.UUID{f.packID}}, true)
	if !errors.Is(err, ErrServiceNotActivated) {
		t.Fatalf("expected ErrServiceNotActivated, got: %v", err)
	}
}

func TestApplyPendingPackChanges_AppliesDueChange(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	oldRowID := uuid.New()
	targetPackID := uuid.New()
	targetRowID := uuid.New()
	deactivated, activated := false, false

	store.listDuePendingChangesFn = func(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error) {
		return []database.BusinessServicePack{{
			ID:                oldRowID,
			BusinessServiceID: f.businessServiceID,
			PackID:            f.packID,
			IsActive:          true,
			NextPackID:        pgtype.UUID{Bytes: targetPackID, Valid: true},
			EffectiveDate:     pgtype.Date{Time: DateOf(testClock), Valid: true},
		}}, nil
	}
	store.deactivatePackFn = func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
		if id != oldRowID {
			t.Errorf("expected to deactivate row %s, got %s", oldRowID, id)
		}
		deactivated = true
		return database.BusinessServicePack{ID: id, IsActive: false}, nil
	}
	store.getPackByPackFn = func(ctx context.Context, arg database.GetBusinessServicePackByPackParams) (database.BusinessServicePack, error) {
		if arg.PackID == targetPackID {
			return database.BusinessServicePack{ID: targetRowID, BusinessServiceID: f.businessServiceID, PackID: targetPackID}, nil
		}
		return database.BusinessServicePack{}, pgx.ErrNoRows
	}
	store.activatePackFn = func(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error) {
		if id != targetRowID {
			t.Errorf("expected to activate row %s, got %s", targetRowID, id)
		}
		activated = true
		return database.BusinessServicePack{ID: id, IsActive: true}, nil
	}
	svc, tx := newTestSubscriptionService(store)

	if err := svc.ApplyPendingPackChanges(context.Background(), f.businessID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deactivated || !activated {
		t.Errorf("expected deactivate+activate, got deactivated=%v activated=%v", deactivated, activated)
	}
	if !tx.committed {
		t.Error("expected the per-row transaction to commit")
	}
}

func TestListServices_AppliesPendingFirst(t *testing.T) {
	f := newSubFixture()
	store := defaultSubscriptionStore(f)
	order := []string{}
	store.listDuePendingChangesFn = func(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error) {
		order = append(order, "reconcile")
		return nil, nil
	}
	store.listBusinessServicesFn = func(ctx context.Context, businessID uuid.UUID) ([]database.BusinessService, error) {
		order = append(order, "list")
		return []database.BusinessService{{ID: f.businessServiceID, BusinessID: f.businessID, ServiceID: f.serviceID, IsActive: true}}, nil
	}
	svc, _ := newTestSubscriptionService(store)

	services, err := svc.ListServices(context.Background(), f.businessID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(services))
	}
	if len(order) != 2 || order[0] != "reconcile" || order[1] != "list" {
		t.Errorf("expected reconcile before list, got %v", order)
	}
}
