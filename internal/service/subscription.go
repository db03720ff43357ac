package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
)

// Errors returned by the subscription scheduler.
var (
	ErrServiceNotFound        = errors.New("service not found")
	ErrServiceUnavailable     = errors.New("service is not published and active")
	ErrExactlyOnePack         = errors.New("exactly one pack id must be supplied")
	ErrPackNotInService       = errors.New("pack does not belong to this service")
	ErrAlreadyActivated       = errors.New("service is already activated for this business")
	ErrServiceNotActivated    = errors.New("service is not activated for this business")
	ErrActiveToggleRestricted = errors.New("only an elevated role may toggle service activation")
)

// SubscriptionStore defines the DB methods needed by the pack scheduler.
type SubscriptionStore interface {
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	GetPack(ctx context.Context, id uuid.UUID) (database.Pack, error)
	CreateBusinessService(ctx context.Context, arg database.CreateBusinessServiceParams) (database.BusinessService, error)
	GetBusinessService(ctx context.Context, arg database.GetBusinessServiceParams) (database.BusinessService, error)
	ListBusinessServices(ctx context.Context, businessID uuid.UUID) ([]database.BusinessService, error)
	UpdateBusinessServiceActive(ctx context.Context, arg database.UpdateBusinessServiceActiveParams) (database.BusinessService, error)
	CreateBusinessServicePack(ctx context.Context, arg database.CreateBusinessServicePackParams) (database.BusinessServicePack, error)
	ListBusinessServicePacks(ctx context.Context, businessServiceID uuid.UUID) ([]database.BusinessServicePack, error)
	GetActiveBusinessServicePack(ctx context.Context, businessServiceID uuid.UUID) (database.BusinessServicePack, error)
	GetBusinessServicePackByPack(ctx context.Context, arg database.GetBusinessServicePackByPackParams) (database.BusinessServicePack, error)
	SetPendingPackChange(ctx context.Context, arg database.SetPendingPackChangeParams) (database.BusinessServicePack, error)
	ClearPendingPackChange(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	DeactivateBusinessServicePack(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	ActivateBusinessServicePack(ctx context.Context, id uuid.UUID) (database.BusinessServicePack, error)
	ListDuePendingPackChanges(ctx context.Context, arg database.ListDuePendingPackChangesParams) ([]database.BusinessServicePack, error)
}

// NewSubscriptionStore builds a SubscriptionStore bound to a transaction.
type NewSubscriptionStore func(database.DBTX) SubscriptionStore

// SubscriptionService manages business subscriptions to services: one active
// pack per subscription, with pending changes that apply lazily once their
// effective date arrives.
type SubscriptionService struct {
	pool     TxBeginner
	store    SubscriptionStore
	newStore NewSubscriptionStore
	now      func() time.Time
}

func NewSubscriptionService(pool TxBeginner, store SubscriptionStore, newStore NewSubscriptionStore) *SubscriptionService {
	return &SubscriptionService{pool: pool, store: store, newStore: newStore, now: time.Now}
}

// validateServicePack checks that the service is sellable and the pack is an
// active member of it.
func (s *SubscriptionService) validateServicePack(ctx context.Context, serviceID, packID uuid.UUID) error {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrServiceNotFound
		}
		return fmt.Errorf("get service: %w", err)
	}
	if !svc.IsPublished || !svc.IsActive {
		return ErrServiceUnavailable
	}

	pack, err := s.store.GetPack(ctx, packID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPackNotInService
		}
		return fmt.Errorf("get pack: %w", err)
	}
	if !pack.IsActive || !pack.ServiceID.Valid || uuid.UUID(pack.ServiceID.Bytes) != serviceID {
		return ErrPackNotInService
	}
	return nil
}

// ActivateService subscribes a business to a service with a single active
// pack. The unique (business_id, service_id) constraint turns a concurrent
// double-activation into ErrAlreadyActivated.
func (s *SubscriptionService) ActivateService(ctx context.Context, businessID, serviceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error) {
	if len(packIDs) != 1 {
		return database.BusinessService{}, ErrExactlyOnePack
	}
	packID := packIDs[0]

	if err := s.validateServicePack(ctx, serviceID, packID); err != nil {
		return database.BusinessService{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.BusinessService{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	bs, err := store.CreateBusinessService(ctx, database.CreateBusinessServiceParams{
		BusinessID: businessID,
		ServiceID:  serviceID,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "business_services_business_id_service_id_key") {
			return database.BusinessService{}, ErrAlreadyActivated
		}
		return database.BusinessService{}, fmt.Errorf("create business service: %w", err)
	}

	if _, err := store.CreateBusinessServicePack(ctx, database.CreateBusinessServicePackParams{
		BusinessServiceID: bs.ID,
		PackID:            packID,
		IsActive:          true,
	}); err != nil {
		return database.BusinessService{}, fmt.Errorf("create business service pack: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.BusinessService{}, fmt.Errorf("commit tx: %w", err)
	}
	return bs, nil
}

// UpdateServiceParams carries the optional mutations of UpdateService.
type UpdateServiceParams struct {
	IsActive *bool
	PackIDs  []uuid.UUID
}

// UpdateService mutates a subscription. Elevated callers apply changes
// immediately; business admins may only submit a pack change, which is
// scheduled for the next calendar day.
func (s *SubscriptionService) UpdateService(ctx context.Context, businessID, serviceID uuid.UUID, params UpdateServiceParams, elevated bool) (database.BusinessService, error) {
	if !elevated && params.IsActive != nil {
		return database.BusinessService{}, ErrActiveToggleRestricted
	}

	var packID *uuid.UUID
	if params.PackIDs != nil {
		if len(params.PackIDs) != 1 {
			return database.BusinessService{}, ErrExactlyOnePack
		}
		id := params.PackIDs[0]
		if err := s.validateServicePack(ctx, serviceID, id); err != nil {
			return database.BusinessService{}, err
		}
		packID = &id
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.BusinessService{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	bs, err := store.GetBusinessService(ctx, database.GetBusinessServiceParams{
		BusinessID: businessID,
		ServiceID:  serviceID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.BusinessService{}, ErrServiceNotActivated
		}
		return database.BusinessService{}, fmt.Errorf("get business service: %w", err)
	}

	if params.IsActive != nil && *params.IsActive != bs.IsActive {
		bs, err = store.UpdateBusinessServiceActive(ctx, database.UpdateBusinessServiceActiveParams{
			ID:       bs.ID,
			IsActive: *params.IsActive,
		})
		if err != nil {
			return database.BusinessService{}, fmt.Errorf("update business service: %w", err)
		}
	}

	if packID != nil {
		if elevated {
			err = s.swapPackNow(ctx, store, bs.ID, *packID)
		} else {
			err = s.schedulePackChange(ctx, store, bs.ID, *packID)
		}
		if err != nil {
			return database.BusinessService{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.BusinessService{}, fmt.Errorf("commit tx: %w", err)
	}
	return bs, nil
}

// swapPackNow deactivates the current pack and activates the target in place,
// dropping any pending change on either row.
func (s *SubscriptionService) swapPackNow(ctx context.Context, store SubscriptionStore, businessServiceID, packID uuid.UUID) error {
	current, err := store.GetActiveBusinessServicePack(ctx, businessServiceID)
	switch {
	case err == nil:
		if current.PackID == packID {
			if _, err := store.ClearPendingPackChange(ctx, current.ID); err != nil {
				return fmt.Errorf("clear pending pack change: %w", err)
			}
			return nil
		}
		if _, err := store.DeactivateBusinessServicePack(ctx, current.ID); err != nil {
			return fmt.Errorf("deactivate business service pack: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// no current pack; just bring the target up
	default:
		return fmt.Errorf("get active business service pack: %w", err)
	}
	return s.upsertActivePack(ctx, store, businessServiceID, packID)
}

// schedulePackChange annotates the current pack row with the target and an
// effective date of tomorrow. Re-submitting the already-active pack clears
// any pending change instead.
func (s *SubscriptionService) schedulePackChange(ctx context.Context, store SubscriptionStore, businessServiceID, packID uuid.UUID) error {
	tomorrow := DateOf(s.now()).AddDate(0, 0, 1)

	current, err := store.GetActiveBusinessServicePack(ctx, businessServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// no current pack: a placeholder row carries the pending change
			// until its effective date, inactive so ordering cannot see it
			_, err := store.CreateBusinessServicePack(ctx, database.CreateBusinessServicePackParams{
				BusinessServiceID: businessServiceID,
				PackID:            packID,
				IsActive:          false,
				NextPackID:        pgtype.UUID{Bytes: packID, Valid: true},
				EffectiveDate:     pgtype.Date{Time: tomorrow, Valid: true},
			})
			if err != nil {
				return fmt.Errorf("create placeholder pack row: %w", err)
			}
			return nil
		}
		return fmt.Errorf("get active business service pack: %w", err)
	}

	if current.PackID == packID {
		if _, err := store.ClearPendingPackChange(ctx, current.ID); err != nil {
			return fmt.Errorf("clear pending pack change: %w", err)
		}
		return nil
	}

	if _, err := store.SetPendingPackChange(ctx, database.SetPendingPackChangeParams{
		ID:            current.ID,
		NextPackID:    packID,
		EffectiveDate: tomorrow,
	}); err != nil {
		return fmt.Errorf("set pending pack change: %w", err)
	}
	return nil
}

// upsertActivePack activates an existing row for the pack or creates one.
func (s *SubscriptionService) upsertActivePack(ctx context.Context, store SubscriptionStore, businessServiceID, packID uuid.UUID) error {
	existing, err := store.GetBusinessServicePackByPack(ctx, database.GetBusinessServicePackByPackParams{
		BusinessServiceID: businessServiceID,
		PackID:            packID,
	})
	switch {
	case err == nil:
		if _, err := store.ActivateBusinessServicePack(ctx, existing.ID); err != nil {
			return fmt.Errorf("activate business service pack: %w", err)
		}
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := store.CreateBusinessServicePack(ctx, database.CreateBusinessServicePackParams{
			BusinessServiceID: businessServiceID,
			PackID:            packID,
			IsActive:          true,
		}); err != nil {
			return fmt.Errorf("create business service pack: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("get business service pack: %w", err)
	}
}

// ApplyPendingPackChanges applies every due scheduled change for a business,
// one transaction per pending row. Every read of a business's services runs
// this first, so the scheduler needs no background job.
func (s *SubscriptionService) ApplyPendingPackChanges(ctx context.Context, businessID uuid.UUID) error {
	due, err := s.store.ListDuePendingPackChanges(ctx, database.ListDuePendingPackChangesParams{
		BusinessID: businessID,
		AsOf:       DateOf(s.now()),
	})
	if err != nil {
		return fmt.Errorf("list due pending pack changes: %w", err)
	}

	for _, row := range due {
		if !row.NextPackID.Valid {
			continue
		}
		if err := s.applyPendingChange(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *SubscriptionService) applyPendingChange(ctx context.Context, row database.BusinessServicePack) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)
	nextPackID := uuid.UUID(row.NextPackID.Bytes)

	// Retiring the old row also clears its pending fields, so a concurrent
	// apply of the same row becomes a no-op after the first commit.
	if _, err := store.DeactivateBusinessServicePack(ctx, row.ID); err != nil {
		return fmt.Errorf("deactivate business service pack: %w", err)
	}
	if err := s.upsertActivePack(ctx, store, row.BusinessServiceID, nextPackID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// BusinessServiceDetail pairs a subscription with its pack rows.
type BusinessServiceDetail struct {
	BusinessService database.BusinessService
	Packs           []database.BusinessServicePack
}

// ListServices returns a business's subscriptions with due pending changes
// applied first.
func (s *SubscriptionService) ListServices(ctx context.Context, businessID uuid.UUID) ([]BusinessServiceDetail, error) {
	if err := s.ApplyPendingPackChanges(ctx, businessID); err != nil {
		return nil, err
	}

	services, err := s.store.ListBusinessServices(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list business services: %w", err)
	}

	out := make([]BusinessServiceDetail, 0, len(services))
	for _, bs := range services {
		packs, err := s.store.ListBusinessServicePacks(ctx, bs.ID)
		if err != nil {
			return nil, fmt.Errorf("list business service packs: %w", err)
		}
		out = append(out, BusinessServiceDetail{BusinessService: bs, Packs: packs})
	}
	return out, nil
}
