package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, employee_id, business_id, daily_menu_id, service_id, pack_id, order_date, status, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.EmployeeID, &o.BusinessID, &o.DailyMenuID, &o.ServiceID, &o.PackID, &o.OrderDate, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateOrderParams struct {
	EmployeeID  uuid.UUID
	BusinessID  uuid.UUID
	DailyMenuID uuid.UUID
	ServiceID   pgtype.UUID
	PackID      uuid.UUID
	OrderDate   time.Time
	TotalAmount pgtype.Numeric
}

const createOrder = `
INSERT INTO orders (employee_id, business_id, daily_menu_id, service_id, pack_id, order_date, total_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.EmployeeID, arg.BusinessID, arg.DailyMenuID, arg.ServiceID, arg.PackID, arg.OrderDate, arg.TotalAmount))
}

type GetOrderByEmployeeAndDateParams struct {
	EmployeeID uuid.UUID
	OrderDate  time.Time
}

const getOrderByEmployeeAndDate = `
SELECT ` + orderColumns + `
FROM orders
WHERE employee_id = $1 AND order_date = $2 AND service_id IS NULL
`

func (q *Queries) GetOrderByEmployeeAndDate(ctx context.Context, arg GetOrderByEmployeeAndDateParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByEmployeeAndDate, arg.EmployeeID, arg.OrderDate))
}

type GetOrderByEmployeeDateServiceParams struct {
	EmployeeID uuid.UUID
	OrderDate  time.Time
	ServiceID  uuid.UUID
}

const getOrderByEmployeeDateService = `
SELECT ` + orderColumns + `
FROM orders
WHERE employee_id = $1 AND order_date = $2 AND service_id = $3
`

func (q *Queries) GetOrderByEmployeeDateService(ctx context.Context, arg GetOrderByEmployeeDateServiceParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByEmployeeDateService, arg.EmployeeID, arg.OrderDate, arg.ServiceID))
}

type ListOrdersByEmployeeAndDateParams struct {
	EmployeeID uuid.UUID
	OrderDate  time.Time
}

const listOrdersByEmployeeAndDate = `
SELECT ` + orderColumns + `
FROM orders
WHERE employee_id = $1 AND order_date = $2
ORDER BY created_at
`

func (q *Queries) ListOrdersByEmployeeAndDate(ctx context.Context, arg ListOrdersByEmployeeAndDateParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByEmployeeAndDate, arg.EmployeeID, arg.OrderDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	ComponentID uuid.UUID
	VariantID   uuid.UUID
}

const createOrderItem = `
INSERT INTO order_items (order_id, component_id, variant_id)
VALUES ($1, $2, $3)
RETURNING id, order_id, component_id, variant_id, created_at
`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ComponentID, arg.VariantID)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ComponentID, &i.VariantID, &i.CreatedAt)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, component_id, variant_id, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ComponentID, &i.VariantID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// LockOrder flips a single CREATED order to LOCKED (cutoff-driven lazy path).
// Returns pgx.ErrNoRows when the order was already LOCKED or CANCELLED.
const lockOrder = `
UPDATE orders
SET status = 'LOCKED', updated_at = now()
WHERE id = $1 AND status = 'CREATED'
RETURNING ` + orderColumns

func (q *Queries) LockOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, lockOrder, id))
}

// LockOrdersByDate bulk-transitions a date's CREATED orders to LOCKED and
// returns the number affected.
const lockOrdersByDate = `
UPDATE orders
SET status = 'LOCKED', updated_at = now()
WHERE order_date = $1 AND status = 'CREATED'
`

func (q *Queries) LockOrdersByDate(ctx context.Context, orderDate time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, lockOrdersByDate, orderDate)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
