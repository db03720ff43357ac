package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateBusinessServiceParams struct {
	BusinessID uuid.UUID
	ServiceID  uuid.UUID
}

const createBusinessService = `
INSERT INTO business_services (business_id, service_id)
VALUES ($1, $2)
RETURNING id, business_id, service_id, is_active, created_at, updated_at
`

func (q *Queries) CreateBusinessService(ctx context.Context, arg CreateBusinessServiceParams) (BusinessService, error) {
	row := q.db.QueryRow(ctx, createBusinessService, arg.BusinessID, arg.ServiceID)
	var bs BusinessService
	err := row.Scan(&bs.ID, &bs.BusinessID, &bs.ServiceID, &bs.IsActive, &bs.CreatedAt, &bs.UpdatedAt)
	return bs, err
}

type GetBusinessServiceParams struct {
	BusinessID uuid.UUID
	ServiceID  uuid.UUID
}

const getBusinessService = `
SELECT id, business_id, service_id, is_active, created_at, updated_at
FROM business_services
WHERE business_id = $1 AND service_id = $2
`

func (q *Queries) GetBusinessService(ctx context.Context, arg GetBusinessServiceParams) (BusinessService, error) {
	row := q.db.QueryRow(ctx, getBusinessService, arg.BusinessID, arg.ServiceID)
	var bs BusinessService
	err := row.Scan(&bs.ID, &bs.BusinessID, &bs.ServiceID, &bs.IsActive, &bs.CreatedAt, &bs.UpdatedAt)
	return bs, err
}

const listBusinessServices = `
SELECT id, business_id, service_id, is_active, created_at, updated_at
FROM business_services
WHERE business_id = $1
ORDER BY created_at
`

func (q *Queries) ListBusinessServices(ctx context.Context, businessID uuid.UUID) ([]BusinessService, error) {
	rows, err := q.db.Query(ctx, listBusinessServices, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BusinessService
	for rows.Next() {
		var bs BusinessService
		if err := rows.Scan(&bs.ID, &bs.BusinessID, &bs.ServiceID, &bs.IsActive, &bs.CreatedAt, &bs.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, bs)
	}
	return items, rows.Err()
}

type UpdateBusinessServiceActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

const updateBusinessServiceActive = `
UPDATE business_services
SET is_active = $2, updated_at = now()
WHERE id = $1
RETURNING id, business_id, service_id, is_active, created_at, updated_at
`

func (q *Queries) UpdateBusinessServiceActive(ctx context.Context, arg UpdateBusinessServiceActiveParams) (BusinessService, error) {
	row := q.db.QueryRow(ctx, updateBusinessServiceActive, arg.ID, arg.IsActive)
	var bs BusinessService
	err := row.Scan(&bs.ID, &bs.BusinessID, &bs.ServiceID, &bs.IsActive, &bs.CreatedAt, &bs.UpdatedAt)
	return bs, err
}

const bspColumns = `id, business_service_id, pack_id, is_active, next_pack_id, effective_date, created_at, updated_at`

func scanBusinessServicePack(row interface{ Scan(dest ...any) error }) (BusinessServicePack, error) {
	var p BusinessServicePack
	err := row.Scan(&p.ID, &p.BusinessServiceID, &p.PackID, &p.IsActive, &p.NextPackID, &p.EffectiveDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreateBusinessServicePackParams struct {
	BusinessServiceID uuid.UUID
	PackID            uuid.UUID
	IsActive          bool
	NextPackID        pgtype.UUID
	EffectiveDate     pgtype.Date
}

const createBusinessServicePack = `
INSERT INTO business_service_packs (business_service_id, pack_id, is_active, next_pack_id, effective_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + bspColumns

func (q *Queries) CreateBusinessServicePack(ctx context.Context, arg CreateBusinessServicePackParams) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, createBusinessServicePack,
		arg.BusinessServiceID, arg.PackID, arg.IsActive, arg.NextPackID, arg.EffectiveDate))
}

const listBusinessServicePacks = `
SELECT ` + bspColumns + `
FROM business_service_packs
WHERE business_service_id = $1
ORDER BY created_at
`

func (q *Queries) ListBusinessServicePacks(ctx context.Context, businessServiceID uuid.UUID) ([]BusinessServicePack, error) {
	rows, err := q.db.Query(ctx, listBusinessServicePacks, businessServiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BusinessServicePack
	for rows.Next() {
		p, err := scanBusinessServicePack(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getActiveBusinessServicePack = `
SELECT ` + bspColumns + `
FROM business_service_packs
WHERE business_service_id = $1 AND is_active = TRUE
ORDER BY created_at
LIMIT 1
`

func (q *Queries) GetActiveBusinessServicePack(ctx context.Context, businessServiceID uuid.UUID) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, getActiveBusinessServicePack, businessServiceID))
}

type GetBusinessServicePackByPackParams struct {
	BusinessServiceID uuid.UUID
	PackID            uuid.UUID
}

const getBusinessServicePackByPack = `
SELECT ` + bspColumns + `
FROM business_service_packs
WHERE business_service_id = $1 AND pack_id = $2
`

func (q *Queries) GetBusinessServicePackByPack(ctx context.Context, arg GetBusinessServicePackByPackParams) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, getBusinessServicePackByPack, arg.BusinessServiceID, arg.PackID))
}

type SetPendingPackChangeParams struct {
	ID            uuid.UUID
	NextPackID    uuid.UUID
	EffectiveDate time.Time
}

const setPendingPackChange = `
UPDATE business_service_packs
SET next_pack_id = $2, effective_date = $3, updated_at = now()
WHERE id = $1
RETURNING ` + bspColumns

func (q *Queries) SetPendingPackChange(ctx context.Context, arg SetPendingPackChangeParams) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, setPendingPackChange, arg.ID, arg.NextPackID, arg.EffectiveDate))
}

const clearPendingPackChange = `
UPDATE business_service_packs
SET next_pack_id = NULL, effective_date = NULL, updated_at = now()
WHERE id = $1
RETURNING ` + bspColumns

func (q *Queries) ClearPendingPackChange(ctx context.Context, id uuid.UUID) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, clearPendingPackChange, id))
}

// DeactivateBusinessServicePack retires a pack row and clears any pending
// change it carried.
const deactivateBusinessServicePack = `
UPDATE business_service_packs
SET is_active = FALSE, next_pack_id = NULL, effective_date = NULL, updated_at = now()
WHERE id = $1
RETURNING ` + bspColumns

func (q *Queries) DeactivateBusinessServicePack(ctx context.Context, id uuid.UUID) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, deactivateBusinessServicePack, id))
}

const activateBusinessServicePack = `
UPDATE business_service_packs
SET is_active = TRUE, next_pack_id = NULL, effective_date = NULL, updated_at = now()
WHERE id = $1
RETURNING ` + bspColumns

func (q *Queries) ActivateBusinessServicePack(ctx context.Context, id uuid.UUID) (BusinessServicePack, error) {
	return scanBusinessServicePack(q.db.QueryRow(ctx, activateBusinessServicePack, id))
}

// ListDuePendingPackChanges returns pack rows of a business whose scheduled
// change has reached its effective date.
const listDuePendingPackChanges = `
SELECT bsp.id, bsp.business_service_id, bsp.pack_id, bsp.is_active, bsp.next_pack_id, bsp.effective_date, bsp.created_at, bsp.updated_at
FROM business_service_packs bsp
JOIN business_services bs ON bs.id = bsp.business_service_id
WHERE bs.business_id = $1
  AND bsp.next_pack_id IS NOT NULL
  AND bsp.effective_date <= $2
`

type ListDuePendingPackChangesParams struct {
	BusinessID uuid.UUID
	AsOf       time.Time
}

func (q *Queries) ListDuePendingPackChanges(ctx context.Context, arg ListDuePendingPackChangesParams) ([]BusinessServicePack, error) {
	rows, err := q.db.Query(ctx, listDuePendingPackChanges, arg.BusinessID, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BusinessServicePack
	for rows.Next() {
		p, err := scanBusinessServicePack(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
