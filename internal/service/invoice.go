package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lunchpack/api/internal/database"
	"github.com/shopspring/decimal"
)

// Errors returned by the invoice generator.
var (
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrDuplicateInvoice       = errors.New("an invoice already exists for this business, service and period")
	ErrInvoiceNumberExhausted = errors.New("could not allocate a unique invoice number")
	ErrInvoiceTransition      = errors.New("invalid invoice status transition")
	ErrInvalidPeriod          = errors.New("period start must not be after period end")
)

const invoiceNumberAttempts = 10

// InvoiceStore defines the DB methods needed by the invoice generator.
type InvoiceStore interface {
	ListInvoiceableOrders(ctx context.Context, arg database.ListInvoiceableOrdersParams) ([]database.InvoiceableOrderRow, error)
	ListInvoiceableOrdersByBusiness(ctx context.Context, arg database.ListInvoiceableOrdersByBusinessParams) ([]database.InvoiceableOrderRow, error)
	GetLiveInvoiceByKey(ctx context.Context, arg database.GetLiveInvoiceByKeyParams) (database.Invoice, error)
	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
	CreateInvoiceItem(ctx context.Context, arg database.CreateInvoiceItemParams) (database.InvoiceItem, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	ListInvoiceItemsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceItem, error)
	ListInvoicesByBusiness(ctx context.Context, businessID uuid.UUID) ([]database.Invoice, error)
	IssueInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error)
	MarkInvoicePaid(ctx context.Context, id uuid.UUID) (database.Invoice, error)
}

// NewInvoiceStore builds an InvoiceStore bound to a transaction.
type NewInvoiceStore func(database.DBTX) InvoiceStore

// InvoiceService groups LOCKED, not-yet-invoiced orders into per
// (business, service, period) invoices, idempotently.
type InvoiceService struct {
	pool     TxBeginner
	store    InvoiceStore
	newStore NewInvoiceStore
	dueDays  int
	now      func() time.Time
	randInt  func(n int) int
}

func NewInvoiceService(pool TxBeginner, store InvoiceStore, newStore NewInvoiceStore, dueDays int) *InvoiceService {
	return &InvoiceService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		dueDays:  dueDays,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

type invoiceGroupKey struct {
	businessID uuid.UUID
	serviceID  uuid.UUID
}

// GenerateInvoices creates one invoice per (business, service) holding the
// period's invoiceable orders. Groups that already have a live invoice for
// the period return the existing invoice unchanged.
func (s *InvoiceService) GenerateInvoices(ctx context.Context, periodStart, periodEnd time.Time) ([]database.Invoice, error) {
	periodStart, periodEnd = DateOf(periodStart), DateOf(periodEnd)
	if periodStart.After(periodEnd) {
		return nil, ErrInvalidPeriod
	}

	orders, err := s.store.ListInvoiceableOrders(ctx, database.ListInvoiceableOrdersParams{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("list invoiceable orders: %w", err)
	}
	return s.generateGroups(ctx, orders, periodStart, periodEnd)
}

// GenerateBusinessInvoices is GenerateInvoices scoped to one business. A nil
// period defaults to the previous calendar month.
func (s *InvoiceService) GenerateBusinessInvoices(ctx context.Context, businessID uuid.UUID, periodStart, periodEnd *time.Time) ([]database.Invoice, error) {
	start, end := s.defaultPeriod(periodStart, periodEnd)
	if start.After(end) {
		return nil, ErrInvalidPeriod
	}

	orders, err := s.store.ListInvoiceableOrdersByBusiness(ctx, database.ListInvoiceableOrdersByBusinessParams{
		PeriodStart: start,
		PeriodEnd:   end,
		BusinessID:  businessID,
	})
	if err != nil {
		return nil, fmt.Errorf("list invoiceable orders: %w", err)
	}
	return s.generateGroups(ctx, orders, start, end)
}

func (s *InvoiceService) defaultPeriod(periodStart, periodEnd *time.Time) (time.Time, time.Time) {
	if periodStart != nil && periodEnd != nil {
		return DateOf(*periodStart), DateOf(*periodEnd)
	}
	today := DateOf(s.now())
	firstOfThisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.Local)
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.AddDate(0, 0, -1)
	if periodStart != nil {
		start = DateOf(*periodStart)
	}
	if periodEnd != nil {
		end = DateOf(*periodEnd)
	}
	return start, end
}

func (s *InvoiceService) generateGroups(ctx context.Context, orders []database.InvoiceableOrderRow, periodStart, periodEnd time.Time) ([]database.Invoice, error) {
	groups := make(map[invoiceGroupKey][]database.InvoiceableOrderRow)
	var keys []invoiceGroupKey
	for _, o := range orders {
		key := invoiceGroupKey{businessID: o.BusinessID, serviceID: o.ServiceID}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], o)
	}

	invoices := make([]database.Invoice, 0, len(keys))
	for _, key := range keys {
		inv, err := s.generateGroup(ctx, key, groups[key], periodStart, periodEnd)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// generateGroup creates (or returns) the invoice for one grouping key. The
// existence check runs again inside the transaction: two concurrent
// generators racing past the first check are separated by the partial unique
// index on (business, service, period), and the loser surfaces
// ErrDuplicateInvoice.
func (s *InvoiceService) generateGroup(ctx context.Context, key invoiceGroupKey, orders []database.InvoiceableOrderRow, periodStart, periodEnd time.Time) (database.Invoice, error) {
	lookup := database.GetLiveInvoiceByKeyParams{
		BusinessID:  key.businessID,
		ServiceID:   key.serviceID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	if inv, err := s.store.GetLiveInvoiceByKey(ctx, lookup); err == nil {
		return inv, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Invoice{}, fmt.Errorf("get invoice by key: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	if inv, err := store.GetLiveInvoiceByKey(ctx, lookup); err == nil {
		return inv, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.Invoice{}, fmt.Errorf("get invoice by key: %w", err)
	}

	// Re-read eligibility inside the transaction; an order invoiced by a
	// concurrent non-DRAFT invoice since the outer listing must drop out.
	fresh, err := store.ListInvoiceableOrdersByBusiness(ctx, database.ListInvoiceableOrdersByBusinessParams{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		BusinessID:  key.businessID,
	})
	if err != nil {
		return database.Invoice{}, fmt.Errorf("list invoiceable orders: %w", err)
	}
	orders = orders[:0]
	for _, o := range fresh {
		if o.ServiceID == key.serviceID {
			orders = append(orders, o)
		}
	}

	subtotal := decimal.Zero
	for _, o := range orders {
		amount, err := NumericToDecimal(o.TotalAmount)
		if err != nil {
			return database.Invoice{}, fmt.Errorf("order %s total: %w", o.ID, err)
		}
		subtotal = subtotal.Add(amount)
	}
	total := subtotal

	inv, err := s.createWithNumber(ctx, tx, database.CreateInvoiceParams{
		BusinessID:  key.businessID,
		ServiceID:   key.serviceID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Subtotal:    DecimalToNumeric(subtotal),
		Tax:         DecimalToNumeric(decimal.Zero),
		Total:       DecimalToNumeric(total),
		DueDate:     periodEnd.AddDate(0, 0, s.dueDays),
	})
	if err != nil {
		return database.Invoice{}, err
	}

	for _, o := range orders {
		if _, err := store.CreateInvoiceItem(ctx, database.CreateInvoiceItemParams{
			InvoiceID:   inv.ID,
			OrderID:     o.ID,
			Description: fmt.Sprintf("%s (%s)", o.PackName, DateOf(o.OrderDate).Format(time.DateOnly)),
			Quantity:    1,
			UnitPrice:   o.TotalAmount,
			TotalPrice:  o.TotalAmount,
		}); err != nil {
			return database.Invoice{}, fmt.Errorf("create invoice item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if database.IsUniqueViolation(err, "invoices_business_service_period_key") {
			return database.Invoice{}, ErrDuplicateInvoice
		}
		return database.Invoice{}, fmt.Errorf("commit tx: %w", err)
	}
	return inv, nil
}

// createWithNumber inserts the invoice, retrying with a fresh random number
// suffix on number collisions. Each attempt runs under its own savepoint:
// Postgres aborts the enclosing transaction on the first statement error, so
// retrying the INSERT directly would only ever see SQLSTATE 25P02.
func (s *InvoiceService) createWithNumber(ctx context.Context, tx pgx.Tx, arg database.CreateInvoiceParams) (database.Invoice, error) {
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		arg.InvoiceNumber = fmt.Sprintf("INV-%s-%04d", DateOf(s.now()).Format("20060102"), s.randInt(10000))
		inv, err := s.insertInvoice(ctx, tx, arg)
		if err == nil {
			return inv, nil
		}
		if database.IsUniqueViolation(err, "invoices_invoice_number_key") {
			continue
		}
		if database.IsUniqueViolation(err, "invoices_business_service_period_key") {
			return database.Invoice{}, ErrDuplicateInvoice
		}
		return database.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	return database.Invoice{}, ErrInvoiceNumberExhausted
}

// insertInvoice runs one insert attempt inside a savepoint (pgx nested
// transaction) so a unique violation aborts only the savepoint and the
// enclosing transaction stays usable for the next attempt.
func (s *InvoiceService) insertInvoice(ctx context.Context, tx pgx.Tx, arg database.CreateInvoiceParams) (database.Invoice, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("begin savepoint: %w", err)
	}

	inv, err := s.newStore(sp).CreateInvoice(ctx, arg)
	if err != nil {
		sp.Rollback(ctx) //nolint:errcheck
		return database.Invoice{}, err
	}

	if err := sp.Commit(ctx); err != nil {
		return database.Invoice{}, fmt.Errorf("commit savepoint: %w", err)
	}
	return inv, nil
}

// InvoiceDetail pairs an invoice with its line items.
type InvoiceDetail struct {
	Invoice database.Invoice
	Items   []database.InvoiceItem
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	items, err := s.store.ListInvoiceItemsByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	return &InvoiceDetail{Invoice: inv, Items: items}, nil
}

func (s *InvoiceService) ListBusinessInvoices(ctx context.Context, businessID uuid.UUID) ([]database.Invoice, error) {
	return s.store.ListInvoicesByBusiness(ctx, businessID)
}

// IssueInvoice transitions DRAFT -> ISSUED.
func (s *InvoiceService) IssueInvoice(ctx context.Context, id uuid.UUID) (database.Invoice, error) {
	inv, err := s.store.IssueInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Invoice{}, ErrInvoiceTransition
		}
		return database.Invoice{}, fmt.Errorf("issue invoice: %w", err)
	}
	return inv, nil
}

// MarkAsPaid transitions ISSUED -> PAID.
func (s *InvoiceService) MarkAsPaid(ctx context.Context, id uuid.UUID) (database.Invoice, error) {
	inv, err := s.store.MarkInvoicePaid(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Invoice{}, ErrInvoiceTransition
		}
		return database.Invoice{}, fmt.Errorf("mark invoice paid: %w", err)
	}
	return inv, nil
}
