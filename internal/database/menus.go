package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CreateDailyMenuParams struct {
	MenuDate   time.Time
	CutoffHour string
}

const createDailyMenu = `
INSERT INTO daily_menus (menu_date, cutoff_hour)
VALUES ($1, $2)
RETURNING id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
`

func (q *Queries) CreateDailyMenu(ctx context.Context, arg CreateDailyMenuParams) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, createDailyMenu, arg.MenuDate, arg.CutoffHour)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getDailyMenu = `
SELECT id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
FROM daily_menus
WHERE id = $1
`

func (q *Queries) GetDailyMenu(ctx context.Context, id uuid.UUID) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, getDailyMenu, id)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const getDailyMenuByDate = `
SELECT id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
FROM daily_menus
WHERE menu_date = $1
`

func (q *Queries) GetDailyMenuByDate(ctx context.Context, menuDate time.Time) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, getDailyMenuByDate, menuDate)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Status transition queries guard the source state in the WHERE clause so a
// concurrent transition loses with pgx.ErrNoRows instead of clobbering.

const publishDailyMenu = `
UPDATE daily_menus
SET status = 'PUBLISHED', published_at = now(), updated_at = now()
WHERE id = $1 AND status = 'DRAFT'
RETURNING id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
`

func (q *Queries) PublishDailyMenu(ctx context.Context, id uuid.UUID) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, publishDailyMenu, id)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const lockDailyMenu = `
UPDATE daily_menus
SET status = 'LOCKED', updated_at = now()
WHERE id = $1 AND status = 'PUBLISHED'
RETURNING id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
`

func (q *Queries) LockDailyMenu(ctx context.Context, id uuid.UUID) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, lockDailyMenu, id)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const unlockDailyMenu = `
UPDATE daily_menus
SET status = 'PUBLISHED', updated_at = now()
WHERE id = $1 AND status = 'LOCKED'
RETURNING id, menu_date, status, cutoff_hour, published_at, created_at, updated_at
`

func (q *Queries) UnlockDailyMenu(ctx context.Context, id uuid.UUID) (DailyMenu, error) {
	row := q.db.QueryRow(ctx, unlockDailyMenu, id)
	var m DailyMenu
	err := row.Scan(&m.ID, &m.MenuDate, &m.Status, &m.CutoffHour, &m.PublishedAt, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// --- Menu-level packs ---

type AddDailyMenuPackParams struct {
	DailyMenuID uuid.UUID
	PackID      uuid.UUID
}

const addDailyMenuPack = `
INSERT INTO daily_menu_packs (daily_menu_id, pack_id)
VALUES ($1, $2)
RETURNING id, daily_menu_id, pack_id
`

func (q *Queries) AddDailyMenuPack(ctx context.Context, arg AddDailyMenuPackParams) (DailyMenuPack, error) {
	row := q.db.QueryRow(ctx, addDailyMenuPack, arg.DailyMenuID, arg.PackID)
	var p DailyMenuPack
	err := row.Scan(&p.ID, &p.DailyMenuID, &p.PackID)
	return p, err
}

type GetDailyMenuPackParams struct {
	DailyMenuID uuid.UUID
	PackID      uuid.UUID
}

const getDailyMenuPack = `
SELECT id, daily_menu_id, pack_id
FROM daily_menu_packs
WHERE daily_menu_id = $1 AND pack_id = $2
`

func (q *Queries) GetDailyMenuPack(ctx context.Context, arg GetDailyMenuPackParams) (DailyMenuPack, error) {
	row := q.db.QueryRow(ctx, getDailyMenuPack, arg.DailyMenuID, arg.PackID)
	var p DailyMenuPack
	err := row.Scan(&p.ID, &p.DailyMenuID, &p.PackID)
	return p, err
}

const listDailyMenuPacks = `
SELECT id, daily_menu_id, pack_id
FROM daily_menu_packs
WHERE daily_menu_id = $1
`

func (q *Queries) ListDailyMenuPacks(ctx context.Context, dailyMenuID uuid.UUID) ([]DailyMenuPack, error) {
	rows, err := q.db.Query(ctx, listDailyMenuPacks, dailyMenuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyMenuPack
	for rows.Next() {
		var p DailyMenuPack
		if err := rows.Scan(&p.ID, &p.DailyMenuID, &p.PackID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const removeDailyMenuPack = `
DELETE FROM daily_menu_packs
WHERE daily_menu_id = $1 AND pack_id = $2
`

func (q *Queries) RemoveDailyMenuPack(ctx context.Context, arg GetDailyMenuPackParams) error {
	_, err := q.db.Exec(ctx, removeDailyMenuPack, arg.DailyMenuID, arg.PackID)
	return err
}

// --- Menu-level variant stock ---

type AddDailyMenuVariantParams struct {
	DailyMenuID uuid.UUID
	VariantID   uuid.UUID
	Stock       int32
}

const addDailyMenuVariant = `
INSERT INTO daily_menu_variants (daily_menu_id, variant_id, stock)
VALUES ($1, $2, $3)
RETURNING id, daily_menu_id, variant_id, stock
`

func (q *Queries) AddDailyMenuVariant(ctx context.Context, arg AddDailyMenuVariantParams) (DailyMenuVariant, error) {
	row := q.db.QueryRow(ctx, addDailyMenuVariant, arg.DailyMenuID, arg.VariantID, arg.Stock)
	var v DailyMenuVariant
	err := row.Scan(&v.ID, &v.DailyMenuID, &v.VariantID, &v.Stock)
	return v, err
}

type GetDailyMenuVariantParams struct {
	DailyMenuID uuid.UUID
	VariantID   uuid.UUID
}

const getDailyMenuVariant = `
SELECT id, daily_menu_id, variant_id, stock
FROM daily_menu_variants
WHERE daily_menu_id = $1 AND variant_id = $2
`

func (q *Queries) GetDailyMenuVariant(ctx context.Context, arg GetDailyMenuVariantParams) (DailyMenuVariant, error) {
	row := q.db.QueryRow(ctx, getDailyMenuVariant, arg.DailyMenuID, arg.VariantID)
	var v DailyMenuVariant
	err := row.Scan(&v.ID, &v.DailyMenuID, &v.VariantID, &v.Stock)
	return v, err
}

const listDailyMenuVariants = `
SELECT id, daily_menu_id, variant_id, stock
FROM daily_menu_variants
WHERE daily_menu_id = $1
`

func (q *Queries) ListDailyMenuVariants(ctx context.Context, dailyMenuID uuid.UUID) ([]DailyMenuVariant, error) {
	rows, err := q.db.Query(ctx, listDailyMenuVariants, dailyMenuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyMenuVariant
	for rows.Next() {
		var v DailyMenuVariant
		if err := rows.Scan(&v.ID, &v.DailyMenuID, &v.VariantID, &v.Stock); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const removeDailyMenuVariant = `
DELETE FROM daily_menu_variants
WHERE daily_menu_id = $1 AND variant_id = $2
`

func (q *Queries) RemoveDailyMenuVariant(ctx context.Context, arg GetDailyMenuVariantParams) error {
	_, err := q.db.Exec(ctx, removeDailyMenuVariant, arg.DailyMenuID, arg.VariantID)
	return err
}

// DecrementDailyMenuVariantStock consumes one unit. The stock > 0 guard makes
// the decrement safe under concurrency: the loser sees pgx.ErrNoRows.
const decrementDailyMenuVariantStock = `
UPDATE daily_menu_variants
SET stock = stock - 1
WHERE id = $1 AND stock > 0
RETURNING stock
`

func (q *Queries) DecrementDailyMenuVariantStock(ctx context.Context, id uuid.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, decrementDailyMenuVariantStock, id)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

// --- Per-service menu rows ---

type AddDailyMenuServiceParams struct {
	DailyMenuID uuid.UUID
	ServiceID   uuid.UUID
}

const addDailyMenuService = `
INSERT INTO daily_menu_services (daily_menu_id, service_id)
VALUES ($1, $2)
RETURNING id, daily_menu_id, service_id
`

func (q *Queries) AddDailyMenuService(ctx context.Context, arg AddDailyMenuServiceParams) (DailyMenuService, error) {
	row := q.db.QueryRow(ctx, addDailyMenuService, arg.DailyMenuID, arg.ServiceID)
	var s DailyMenuService
	err := row.Scan(&s.ID, &s.DailyMenuID, &s.ServiceID)
	return s, err
}

type GetDailyMenuServiceParams struct {
	DailyMenuID uuid.UUID
	ServiceID   uuid.UUID
}

const getDailyMenuService = `
SELECT id, daily_menu_id, service_id
FROM daily_menu_services
WHERE daily_menu_id = $1 AND service_id = $2
`

func (q *Queries) GetDailyMenuService(ctx context.Context, arg GetDailyMenuServiceParams) (DailyMenuService, error) {
	row := q.db.QueryRow(ctx, getDailyMenuService, arg.DailyMenuID, arg.ServiceID)
	var s DailyMenuService
	err := row.Scan(&s.ID, &s.DailyMenuID, &s.ServiceID)
	return s, err
}

const listDailyMenuServices = `
SELECT id, daily_menu_id, service_id
FROM daily_menu_services
WHERE daily_menu_id = $1
`

func (q *Queries) ListDailyMenuServices(ctx context.Context, dailyMenuID uuid.UUID) ([]DailyMenuService, error) {
	rows, err := q.db.Query(ctx, listDailyMenuServices, dailyMenuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyMenuService
	for rows.Next() {
		var s DailyMenuService
		if err := rows.Scan(&s.ID, &s.DailyMenuID, &s.ServiceID); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const removeDailyMenuService = `
DELETE FROM daily_menu_services
WHERE daily_menu_id = $1 AND service_id = $2
`

func (q *Queries) RemoveDailyMenuService(ctx context.Context, arg GetDailyMenuServiceParams) error {
	_, err := q.db.Exec(ctx, removeDailyMenuService, arg.DailyMenuID, arg.ServiceID)
	return err
}

type AddDailyMenuServicePackParams struct {
	DailyMenuServiceID uuid.UUID
	PackID             uuid.UUID
}

const addDailyMenuServicePack = `
INSERT INTO daily_menu_service_packs (daily_menu_service_id, pack_id)
VALUES ($1, $2)
RETURNING id, daily_menu_service_id, pack_id
`

func (q *Queries) AddDailyMenuServicePack(ctx context.Context, arg AddDailyMenuServicePackParams) (DailyMenuServicePack, error) {
	row := q.db.QueryRow(ctx, addDailyMenuServicePack, arg.DailyMenuServiceID, arg.PackID)
	var p DailyMenuServicePack
	err := row.Scan(&p.ID, &p.DailyMenuServiceID, &p.PackID)
	return p, err
}

type GetDailyMenuServicePackParams struct {
	DailyMenuServiceID uuid.UUID
	PackID             uuid.UUID
}

const getDailyMenuServicePack = `
SELECT id, daily_menu_service_id, pack_id
FROM daily_menu_service_packs
WHERE daily_menu_service_id = $1 AND pack_id = $2
`

func (q *Queries) GetDailyMenuServicePack(ctx context.Context, arg GetDailyMenuServicePackParams) (DailyMenuServicePack, error) {
	row := q.db.QueryRow(ctx, getDailyMenuServicePack, arg.DailyMenuServiceID, arg.PackID)
	var p DailyMenuServicePack
	err := row.Scan(&p.ID, &p.DailyMenuServiceID, &p.PackID)
	return p, err
}

const listDailyMenuServicePacks = `
SELECT id, daily_menu_service_id, pack_id
FROM daily_menu_service_packs
WHERE daily_menu_service_id = $1
`

func (q *Queries) ListDailyMenuServicePacks(ctx context.Context, dailyMenuServiceID uuid.UUID) ([]DailyMenuServicePack, error) {
	rows, err := q.db.Query(ctx, listDailyMenuServicePacks, dailyMenuServiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyMenuServicePack
	for rows.Next() {
		var p DailyMenuServicePack
		if err := rows.Scan(&p.ID, &p.DailyMenuServiceID, &p.PackID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

type AddDailyMenuServiceVariantParams struct {
	DailyMenuServiceID uuid.UUID
	VariantID          uuid.UUID
	Stock              int32
}

const addDailyMenuServiceVariant = `
INSERT INTO daily_menu_service_variants (daily_menu_service_id, variant_id, stock)
VALUES ($1, $2, $3)
RETURNING id, daily_menu_service_id, variant_id, stock
`

func (q *Queries) AddDailyMenuServiceVariant(ctx context.Context, arg AddDailyMenuServiceVariantParams) (DailyMenuServiceVariant, error) {
	row := q.db.QueryRow(ctx, addDailyMenuServiceVariant, arg.DailyMenuServiceID, arg.VariantID, arg.Stock)
	var v DailyMenuServiceVariant
	err := row.Scan(&v.ID, &v.DailyMenuServiceID, &v.VariantID, &v.Stock)
	return v, err
}

type GetDailyMenuServiceVariantParams struct {
	DailyMenuServiceID uuid.UUID
	VariantID          uuid.UUID
}

const getDailyMenuServiceVariant = `
SELECT id, daily_menu_service_id, variant_id, stock
FROM daily_menu_service_variants
WHERE daily_menu_service_id = $1 AND variant_id = $2
`

func (q *Queries) GetDailyMenuServiceVariant(ctx context.Context, arg GetDailyMenuServiceVariantParams) (DailyMenuServiceVariant, error) {
	row := q.db.QueryRow(ctx, getDailyMenuServiceVariant, arg.DailyMenuServiceID, arg.VariantID)
	var v DailyMenuServiceVariant
	err := row.Scan(&v.ID, &v.DailyMenuServiceID, &v.VariantID, &v.Stock)
	return v, err
}

const listDailyMenuServiceVariants = `
SELECT id, daily_menu_service_id, variant_id, stock
FROM daily_menu_service_variants
WHERE daily_menu_service_id = $1
`

func (q *Queries) ListDailyMenuServiceVariants(ctx context.Context, dailyMenuServiceID uuid.UUID) ([]DailyMenuServiceVariant, error) {
	rows, err := q.db.Query(ctx, listDailyMenuServiceVariants, dailyMenuServiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailyMenuServiceVariant
	for rows.Next() {
		var v DailyMenuServiceVariant
		if err := rows.Scan(&v.ID, &v.DailyMenuServiceID, &v.VariantID, &v.Stock); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const decrementDailyMenuServiceVariantStock = `
UPDATE daily_menu_service_variants
SET stock = stock - 1
WHERE id = $1 AND stock > 0
RETURNING stock
`

func (q *Queries) DecrementDailyMenuServiceVariantStock(ctx context.Context, id uuid.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, decrementDailyMenuServiceVariantStock, id)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

// --- Publish guardrail inputs ---

type VariantConsumptionRow struct {
	VariantID uuid.UUID
	Consumed  int64
}

// CountVariantConsumptionByDate tallies how many times each variant appeared
// in LOCKED orders of a date. Used by the publish guardrail comparing today's
// stock against yesterday's demand.
const countVariantConsumptionByDate = `
SELECT oi.variant_id, COUNT(*)
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.order_date = $1 AND o.status = 'LOCKED'
GROUP BY oi.variant_id
`

func (q *Queries) CountVariantConsumptionByDate(ctx context.Context, orderDate time.Time) ([]VariantConsumptionRow, error) {
	rows, err := q.db.Query(ctx, countVariantConsumptionByDate, orderDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VariantConsumptionRow
	for rows.Next() {
		var r VariantConsumptionRow
		if err := rows.Scan(&r.VariantID, &r.Consumed); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
