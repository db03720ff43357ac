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
	"github.com/lunchpack/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrEmployeeNotFound            = errors.New("employee not found or inactive")
	ErrBusinessInactive            = errors.New("business is not active")
	ErrMenuNotPublished            = errors.New("daily menu is not published")
	ErrNotTodaysMenu               = errors.New("orders may only be placed against today's menu")
	ErrPackUnavailable             = errors.New("pack is not available on this menu")
	ErrMissingRequiredComponent    = errors.New("missing selection for required component")
	ErrDuplicateComponentSelection = errors.New("component selected more than once")
	ErrComponentNotInPack          = errors.New("component does not belong to pack")
	ErrVariantNotFound             = errors.New("variant not found")
	ErrVariantComponentMismatch    = errors.New("variant does not belong to component")
	ErrVariantNotOnMenu            = errors.New("variant is not offered on this menu")
	ErrOutOfStock                  = errors.New("variant is out of stock")
	ErrInvalidComponentID          = errors.New("invalid component_id")
	ErrInvalidVariantID            = errors.New("invalid variant_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to place and read orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	WindowStore
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetBusiness(ctx context.Context, id uuid.UUID) (database.Business, error)
	GetDailyMenu(ctx context.Context, id uuid.UUID) (database.DailyMenu, error)
	GetPack(ctx context.Context, id uuid.UUID) (database.Pack, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	GetDailyMenuPack(ctx context.Context, arg database.GetDailyMenuPackParams) (database.DailyMenuPack, error)
	GetDailyMenuService(ctx context.Context, arg database.GetDailyMenuServiceParams) (database.DailyMenuService, error)
	GetDailyMenuServicePack(ctx context.Context, arg database.GetDailyMenuServicePackParams) (database.DailyMenuServicePack, error)
	ListPackComponents(ctx context.Context, packID uuid.UUID) ([]database.PackComponent, error)
	GetVariant(ctx context.Context, id uuid.UUID) (database.Variant, error)
	GetDailyMenuVariant(ctx context.Context, arg database.GetDailyMenuVariantParams) (database.DailyMenuVariant, error)
	GetDailyMenuServiceVariant(ctx context.Context, arg database.GetDailyMenuServiceVariantParams) (database.DailyMenuServiceVariant, error)
	DecrementDailyMenuVariantStock(ctx context.Context, id uuid.UUID) (int32, error)
	DecrementDailyMenuServiceVariantStock(ctx context.Context, id uuid.UUID) (int32, error)
	GetOrderByEmployeeAndDate(ctx context.Context, arg database.GetOrderByEmployeeAndDateParams) (database.Order, error)
	GetOrderByEmployeeDateService(ctx context.Context, arg database.GetOrderByEmployeeDateServiceParams) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrdersByEmployeeAndDate(ctx context.Context, arg database.ListOrdersByEmployeeAndDateParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	LockOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	EmployeeID  uuid.UUID
	DailyMenuID uuid.UUID
	PackID      uuid.UUID
	Selections  []SelectionRequest
}

// SelectionRequest is one (component, variant) choice.
type SelectionRequest struct {
	ComponentID string
	VariantID   string
}

// CreateOrderResult is the created (or idempotently returned) order.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
	// AlreadyExisted is true when the employee already had an order for this
	// date/service and that order was returned unchanged.
	AlreadyExisted bool
}

// OrderWithItems pairs an order with its items for read endpoints.
type OrderWithItems struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order placement and reads.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
	window   *WindowEvaluator
	now      func() time.Time
}

// NewOrderService creates a new OrderService. store is pool-bound; newStore
// creates transaction-bound stores.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore, window *WindowEvaluator) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore, window: window, now: time.Now}
}

// stockTarget identifies one stock row to decrement while creating the order.
type stockTarget struct {
	rowID        uuid.UUID
	serviceScope bool
}

// preparedSelection is a validated selection ready for insertion.
type preparedSelection struct {
	componentID uuid.UUID
	variantID   uuid.UUID
	stock       stockTarget
}

// CreateOrder validates the requested pack/variant selection against today's
// published menu and atomically creates the order while decrementing stock.
// It is idempotent per (employee, date, service): an existing order is
// returned unchanged, including when the duplicate only surfaces as a
// unique-constraint violation at commit time (two concurrent submissions).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	result, err := s.createOrderTx(ctx, req)
	if err == nil {
		return result, nil
	}

	// Duplicate-resolution-via-catch: the partial unique indexes on orders
	// make the loser of a concurrent duplicate submission fail at commit; we
	// resolve by fetching and returning the winner's order.
	if database.IsUniqueViolation(err, "orders_employee_date_service_key") ||
		database.IsUniqueViolation(err, "orders_employee_date_key") {
		existing, fetchErr := s.fetchExistingOrder(ctx, req)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch order after duplicate conflict: %w", fetchErr)
		}
		return existing, nil
	}
	return nil, err
}

func (s *OrderService) fetchExistingOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	today := DateOf(s.now())

	pack, err := s.store.GetPack(ctx, req.PackID)
	if err != nil {
		return nil, fmt.Errorf("get pack: %w", err)
	}

	var order database.Order
	if pack.ServiceID.Valid {
		order, err = s.store.GetOrderByEmployeeDateService(ctx, database.GetOrderByEmployeeDateServiceParams{
			EmployeeID: req.EmployeeID,
			OrderDate:  today,
			ServiceID:  uuid.UUID(pack.ServiceID.Bytes),
		})
	} else {
		order, err = s.store.GetOrderByEmployeeAndDate(ctx, database.GetOrderByEmployeeAndDateParams{
			EmployeeID: req.EmployeeID,
			OrderDate:  today,
		})
	}
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return &CreateOrderResult{Order: order, Items: items, AlreadyExisted: true}, nil
}

// createOrderTx runs the full validation and creation in one transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve employee and business ---
	employee, err := store.GetUserByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	if !employee.IsActive || !employee.BusinessID.Valid {
		return nil, ErrEmployeeNotFound
	}
	business, err := store.GetBusiness(ctx, uuid.UUID(employee.BusinessID.Bytes))
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	if !business.IsActive {
		return nil, ErrBusinessInactive
	}

	// --- Menu must be published and must be today's ---
	menu, err := store.GetDailyMenu(ctx, req.DailyMenuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuNotPublished
		}
		return nil, fmt.Errorf("get daily menu: %w", err)
	}
	if menu.Status != enum.MenuStatusPublished {
		return nil, ErrMenuNotPublished
	}
	now := s.now()
	if !SameDate(menu.MenuDate, now) {
		return nil, ErrNotTodaysMenu
	}
	today := DateOf(now)

	// --- Pack must be attached to the menu and active ---
	pack, err := store.GetPack(ctx, req.PackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackUnavailable
		}
		return nil, fmt.Errorf("get pack: %w", err)
	}
	if !pack.IsActive {
		return nil, ErrPackUnavailable
	}

	var svc *database.Service
	var menuService *database.DailyMenuService
	if pack.ServiceID.Valid {
		serviceID := uuid.UUID(pack.ServiceID.Bytes)
		sv, err := store.GetService(ctx, serviceID)
		if err != nil {
			return nil, fmt.Errorf("get service: %w", err)
		}
		svc = &sv

		dms, err := store.GetDailyMenuService(ctx, database.GetDailyMenuServiceParams{
			DailyMenuID: menu.ID,
			ServiceID:   serviceID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPackUnavailable
			}
			return nil, fmt.Errorf("get menu service: %w", err)
		}
		menuService = &dms

		if _, err := store.GetDailyMenuServicePack(ctx, database.GetDailyMenuServicePackParams{
			DailyMenuServiceID: dms.ID,
			PackID:             pack.ID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPackUnavailable
			}
			return nil, fmt.Errorf("get menu service pack: %w", err)
		}
	} else {
		if _, err := store.GetDailyMenuPack(ctx, database.GetDailyMenuPackParams{
			DailyMenuID: menu.ID,
			PackID:      pack.ID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrPackUnavailable
			}
			return nil, fmt.Errorf("get menu pack: %w", err)
		}
	}

	// --- Ordering window ---
	if err := s.window.Evaluate(ctx, store, menu.MenuDate, &menu, svc); err != nil {
		return nil, err
	}

	// --- Validate selections ---
	packComponents, err := store.ListPackComponents(ctx, pack.ID)
	if err != nil {
		return nil, fmt.Errorf("list pack components: %w", err)
	}
	inPack := make(map[uuid.UUID]bool, len(packComponents))
	required := make(map[uuid.UUID]bool)
	for _, pc := range packComponents {
		inPack[pc.ComponentID] = true
		if pc.IsRequired {
			required[pc.ComponentID] = true
		}
	}

	seen := make(map[uuid.UUID]bool, len(req.Selections))
	prepared := make([]preparedSelection, 0, len(req.Selections))
	for i, sel := range req.Selections {
		componentID, err := uuid.Parse(sel.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrInvalidComponentID)
		}
		variantID, err := uuid.Parse(sel.VariantID)
		if err != nil {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrInvalidVariantID)
		}
		if seen[componentID] {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrDuplicateComponentSelection)
		}
		seen[componentID] = true
		if !inPack[componentID] {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrComponentNotInPack)
		}

		variant, err := store.GetVariant(ctx, variantID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("selections[%d]: %w", i, ErrVariantNotFound)
			}
			return nil, fmt.Errorf("selections[%d]: get variant: %w", i, err)
		}
		if variant.ComponentID != componentID {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrVariantComponentMismatch)
		}

		// Pre-check stock; the decisive check is the guarded decrement below.
		target, stock, err := s.lookupStock(ctx, store, menu.ID, menuService, variantID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("selections[%d]: %w", i, ErrVariantNotOnMenu)
			}
			return nil, fmt.Errorf("selections[%d]: get stock: %w", i, err)
		}
		if stock <= 0 {
			return nil, fmt.Errorf("selections[%d]: %w", i, ErrOutOfStock)
		}

		prepared = append(prepared, preparedSelection{
			componentID: componentID,
			variantID:   variantID,
			stock:       target,
		})
	}

	for componentID := range required {
		if !seen[componentID] {
			return nil, ErrMissingRequiredComponent
		}
	}

	// --- Idempotency: an existing order wins over a new submission ---
	existing, err := s.lookupExisting(ctx, store, req.EmployeeID, today, pack.ServiceID)
	if err == nil {
		items, err := store.ListOrderItemsByOrder(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		return &CreateOrderResult{Order: existing, Items: items, AlreadyExisted: true}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing order: %w", err)
	}

	// --- Consume stock: re-verify and decrement in one guarded statement ---
	for _, p := range prepared {
		var err error
		if p.stock.serviceScope {
			_, err = store.DecrementDailyMenuServiceVariantStock(ctx, p.stock.rowID)
		} else {
			_, err = store.DecrementDailyMenuVariantStock(ctx, p.stock.rowID)
		}
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Lost the race for the last unit between pre-check and here.
				return nil, ErrOutOfStock
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	// --- Insert order with the pack price snapshot ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		EmployeeID:  req.EmployeeID,
		BusinessID:  business.ID,
		DailyMenuID: menu.ID,
		ServiceID:   pack.ServiceID,
		PackID:      pack.ID,
		OrderDate:   today,
		TotalAmount: pack.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(prepared))
	for _, p := range prepared {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			ComponentID: p.componentID,
			VariantID:   p.variantID,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

func (s *OrderService) lookupStock(ctx context.Context, store OrderStore, menuID uuid.UUID, menuService *database.DailyMenuService, variantID uuid.UUID) (stockTarget, int32, error) {
	if menuService != nil {
		row, err := store.GetDailyMenuServiceVariant(ctx, database.GetDailyMenuServiceVariantParams{
			DailyMenuServiceID: menuService.ID,
			VariantID:          variantID,
		})
		if err != nil {
			return stockTarget{}, 0, err
		}
		return stockTarget{rowID: row.ID, serviceScope: true}, row.Stock, nil
	}
	row, err := store.GetDailyMenuVariant(ctx, database.GetDailyMenuVariantParams{
		DailyMenuID: menuID,
		VariantID:   variantID,
	})
	if err != nil {
		return stockTarget{}, 0, err
	}
	return stockTarget{rowID: row.ID}, row.Stock, nil
}

func (s *OrderService) lookupExisting(ctx context.Context, store OrderStore, employeeID uuid.UUID, today time.Time, serviceID pgtype.UUID) (database.Order, error) {
	if serviceID.Valid {
		return store.GetOrderByEmployeeDateService(ctx, database.GetOrderByEmployeeDateServiceParams{
			EmployeeID: employeeID,
			OrderDate:  today,
			ServiceID:  uuid.UUID(serviceID.Bytes),
		})
	}
	return store.GetOrderByEmployeeAndDate(ctx, database.GetOrderByEmployeeAndDateParams{
		EmployeeID: employeeID,
		OrderDate:  today,
	})
}

// GetTodayOrders returns the employee's orders for today. Before returning it
// reconciles each CREATED order against the current ordering window: once the
// day is locked or the cutoff has passed the order is flipped to LOCKED, even
// without an explicit day-lock call. Callers must tolerate the status
// changing between reads.
func (s *OrderService) GetTodayOrders(ctx context.Context, employeeID uuid.UUID) ([]OrderWithItems, error) {
	today := DateOf(s.now())

	orders, err := s.store.ListOrdersByEmployeeAndDate(ctx, database.ListOrdersByEmployeeAndDateParams{
		EmployeeID: employeeID,
		OrderDate:  today,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := make([]OrderWithItems, 0, len(orders))
	for _, order := range orders {
		order = s.reconcileOrderStatus(ctx, order)
		items, err := s.store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		result = append(result, OrderWithItems{Order: order, Items: items})
	}
	return result, nil
}

// reconcileOrderStatus applies the cutoff-driven lazy CREATED->LOCKED
// transition. Failures to reconcile are non-fatal; the order is returned as
// last read.
func (s *OrderService) reconcileOrderStatus(ctx context.Context, order database.Order) database.Order {
	if order.Status != enum.OrderStatusCreated {
		return order
	}

	menu, err := s.store.GetDailyMenu(ctx, order.DailyMenuID)
	if err != nil {
		return order
	}
	var svc *database.Service
	if order.ServiceID.Valid {
		if sv, err := s.store.GetService(ctx, uuid.UUID(order.ServiceID.Bytes)); err == nil {
			svc = &sv
		}
	}

	if err := s.window.Evaluate(ctx, s.store, order.OrderDate, &menu, svc); !errors.Is(err, ErrOrderingWindowClosed) {
		return order
	}

	locked, err := s.store.LockOrder(ctx, order.ID)
	if err != nil {
		// Already locked by a concurrent reader or the day-lock engine.
		return order
	}
	return locked
}
