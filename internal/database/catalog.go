package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getService = `
SELECT id, name, order_start_time, cutoff_time, is_active, is_published, created_at, updated_at
FROM services
WHERE id = $1
`

func (q *Queries) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	row := q.db.QueryRow(ctx, getService, id)
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.OrderStartTime, &s.CutoffTime, &s.IsActive, &s.IsPublished, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const getPack = `
SELECT id, service_id, name, price, is_active, created_at, updated_at
FROM packs
WHERE id = $1
`

func (q *Queries) GetPack(ctx context.Context, id uuid.UUID) (Pack, error) {
	row := q.db.QueryRow(ctx, getPack, id)
	var p Pack
	err := row.Scan(&p.ID, &p.ServiceID, &p.Name, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const listPackComponents = `
SELECT id, pack_id, component_id, is_required, display_order
FROM pack_components
WHERE pack_id = $1
ORDER BY display_order
`

func (q *Queries) ListPackComponents(ctx context.Context, packID uuid.UUID) ([]PackComponent, error) {
	rows, err := q.db.Query(ctx, listPackComponents, packID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PackComponent
	for rows.Next() {
		var pc PackComponent
		if err := rows.Scan(&pc.ID, &pc.PackID, &pc.ComponentID, &pc.IsRequired, &pc.DisplayOrder); err != nil {
			return nil, err
		}
		items = append(items, pc)
	}
	return items, rows.Err()
}

const getComponent = `
SELECT id, name, created_at
FROM components
WHERE id = $1
`

func (q *Queries) GetComponent(ctx context.Context, id uuid.UUID) (Component, error) {
	row := q.db.QueryRow(ctx, getComponent, id)
	var c Component
	err := row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

const getVariant = `
SELECT id, component_id, name, is_active, created_at
FROM variants
WHERE id = $1
`

func (q *Queries) GetVariant(ctx context.Context, id uuid.UUID) (Variant, error) {
	row := q.db.QueryRow(ctx, getVariant, id)
	var v Variant
	err := row.Scan(&v.ID, &v.ComponentID, &v.Name, &v.IsActive, &v.CreatedAt)
	return v, err
}

// GetEarliestMealCutoff returns the earliest legacy meal cutoff (HH:MM) for a
// date, or an invalid Text when no meal is available that day.
const getEarliestMealCutoff = `
SELECT MIN(cutoff_time)
FROM meals
WHERE available_on = $1
`

func (q *Queries) GetEarliestMealCutoff(ctx context.Context, availableOn time.Time) (pgtype.Text, error) {
	row := q.db.QueryRow(ctx, getEarliestMealCutoff, availableOn)
	var cutoff pgtype.Text
	err := row.Scan(&cutoff)
	return cutoff, err
}
