package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, business_id, service_id, invoice_number, status, period_start, period_end, subtotal, tax, total, due_date, created_at, updated_at`

func scanInvoice(row interface{ Scan(dest ...any) error }) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.BusinessID, &inv.ServiceID, &inv.InvoiceNumber, &inv.Status, &inv.PeriodStart, &inv.PeriodEnd, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// InvoiceableOrderRow is a LOCKED order joined with its pack's owning
// service. Orders whose pack has no service never appear.
type InvoiceableOrderRow struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	ServiceID   uuid.UUID
	OrderDate   time.Time
	TotalAmount pgtype.Numeric
	PackName    string
}

const invoiceableOrderSelect = `
SELECT o.id, o.business_id, p.service_id, o.order_date, o.total_amount, p.name
FROM orders o
JOIN packs p ON p.id = o.pack_id
WHERE o.status = 'LOCKED'
  AND p.service_id IS NOT NULL
  AND o.order_date BETWEEN $1 AND $2
  AND NOT EXISTS (
    SELECT 1 FROM invoice_items ii
    JOIN invoices i ON i.id = ii.invoice_id
    WHERE ii.order_id = o.id AND i.status <> 'DRAFT'
  )
`

type ListInvoiceableOrdersParams struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

const listInvoiceableOrders = invoiceableOrderSelect + `
ORDER BY o.business_id, p.service_id, o.order_date
`

func (q *Queries) ListInvoiceableOrders(ctx context.Context, arg ListInvoiceableOrdersParams) ([]InvoiceableOrderRow, error) {
	rows, err := q.db.Query(ctx, listInvoiceableOrders, arg.PeriodStart, arg.PeriodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoiceableOrders(rows)
}

type ListInvoiceableOrdersByBusinessParams struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	BusinessID  uuid.UUID
}

const listInvoiceableOrdersByBusiness = invoiceableOrderSelect + `
  AND o.business_id = $3
ORDER BY p.service_id, o.order_date
`

func (q *Queries) ListInvoiceableOrdersByBusiness(ctx context.Context, arg ListInvoiceableOrdersByBusinessParams) ([]InvoiceableOrderRow, error) {
	rows, err := q.db.Query(ctx, listInvoiceableOrdersByBusiness, arg.PeriodStart, arg.PeriodEnd, arg.BusinessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoiceableOrders(rows)
}

func collectInvoiceableOrders(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]InvoiceableOrderRow, error) {
	var items []InvoiceableOrderRow
	for rows.Next() {
		var r InvoiceableOrderRow
		if err := rows.Scan(&r.ID, &r.BusinessID, &r.ServiceID, &r.OrderDate, &r.TotalAmount, &r.PackName); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

type GetLiveInvoiceByKeyParams struct {
	BusinessID  uuid.UUID
	ServiceID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// GetLiveInvoiceByKey finds the DRAFT or ISSUED invoice for a grouping key.
// PAID invoices are final and outside the idempotency window.
const getLiveInvoiceByKey = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE business_id = $1 AND service_id = $2 AND period_start = $3 AND period_end = $4
  AND status IN ('DRAFT', 'ISSUED')
`

func (q *Queries) GetLiveInvoiceByKey(ctx context.Context, arg GetLiveInvoiceByKeyParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getLiveInvoiceByKey, arg.BusinessID, arg.ServiceID, arg.PeriodStart, arg.PeriodEnd))
}

type CreateInvoiceParams struct {
	BusinessID    uuid.UUID
	ServiceID     uuid.UUID
	InvoiceNumber string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Subtotal      pgtype.Numeric
	Tax           pgtype.Numeric
	Total         pgtype.Numeric
	DueDate       time.Time
}

const createInvoice = `
INSERT INTO invoices (business_id, service_id, invoice_number, period_start, period_end, subtotal, tax, total, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + invoiceColumns

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.BusinessID, arg.ServiceID, arg.InvoiceNumber, arg.PeriodStart, arg.PeriodEnd, arg.Subtotal, arg.Tax, arg.Total, arg.DueDate))
}

type CreateInvoiceItemParams struct {
	InvoiceID   uuid.UUID
	OrderID     uuid.UUID
	Description string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	TotalPrice  pgtype.Numeric
}

const createInvoiceItem = `
INSERT INTO invoice_items (invoice_id, order_id, description, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, invoice_id, order_id, description, quantity, unit_price, total_price, created_at
`

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg CreateInvoiceItemParams) (InvoiceItem, error) {
	row := q.db.QueryRow(ctx, createInvoiceItem, arg.InvoiceID, arg.OrderID, arg.Description, arg.Quantity, arg.UnitPrice, arg.TotalPrice)
	var it InvoiceItem
	err := row.Scan(&it.ID, &it.InvoiceID, &it.OrderID, &it.Description, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt)
	return it, err
}

const getInvoice = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE id = $1
`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const listInvoiceItemsByInvoice = `
SELECT id, invoice_id, order_id, description, quantity, unit_price, total_price, created_at
FROM invoice_items
WHERE invoice_id = $1
ORDER BY created_at
`

func (q *Queries) ListInvoiceItemsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]InvoiceItem, error) {
	rows, err := q.db.Query(ctx, listInvoiceItemsByInvoice, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.OrderID, &it.Description, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listInvoicesByBusiness = `
SELECT ` + invoiceColumns + `
FROM invoices
WHERE business_id = $1
ORDER BY period_start DESC, created_at DESC
`

func (q *Queries) ListInvoicesByBusiness(ctx context.Context, businessID uuid.UUID) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoicesByBusiness, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

// Status transitions are strictly forward; the WHERE clause rejects
// out-of-order calls with pgx.ErrNoRows.

const issueInvoice = `
UPDATE invoices
SET status = 'ISSUED', updated_at = now()
WHERE id = $1 AND status = 'DRAFT'
RETURNING ` + invoiceColumns

func (q *Queries) IssueInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, issueInvoice, id))
}

const markInvoicePaid = `
UPDATE invoices
SET status = 'PAID', updated_at = now()
WHERE id = $1 AND status = 'ISSUED'
RETURNING ` + invoiceColumns

func (q *Queries) MarkInvoicePaid(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, markInvoicePaid, id))
}
