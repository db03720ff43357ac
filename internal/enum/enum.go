package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	MenuStatusDraft     = "DRAFT"
	MenuStatusPublished = "PUBLISHED"
	MenuStatusLocked    = "LOCKED"
)

const (
	OrderStatusCreated   = "CREATED"
	OrderStatusLocked    = "LOCKED"
	OrderStatusCancelled = "CANCELLED"
)

const (
	InvoiceStatusDraft  = "DRAFT"
	InvoiceStatusIssued = "ISSUED"
	InvoiceStatusPaid   = "PAID"
)

// ── Group B: Roles (CHECK constrained in DB) ──

const (
	UserRoleSuperAdmin    = "SUPER_ADMIN"
	UserRoleBusinessAdmin = "BUSINESS_ADMIN"
	UserRoleEmployee      = "EMPLOYEE"
)

// ── Group C: Event labels (no DB constraint) ──

const (
	EventOrderCreated  = "order.created"
	EventDayLocked     = "day.locked"
	EventMenuPublished = "menu.published"
)
