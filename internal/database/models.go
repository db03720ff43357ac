package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Business struct {
	ID        uuid.UUID
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	BusinessID   pgtype.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Component struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Variant struct {
	ID          uuid.UUID
	ComponentID uuid.UUID
	Name        string
	IsActive    bool
	CreatedAt   time.Time
}

type Service struct {
	ID             uuid.UUID
	Name           string
	OrderStartTime pgtype.Text
	CutoffTime     pgtype.Text
	IsActive       bool
	IsPublished    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Pack struct {
	ID        uuid.UUID
	ServiceID pgtype.UUID
	Name      string
	Price     pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PackComponent struct {
	ID           uuid.UUID
	PackID       uuid.UUID
	ComponentID  uuid.UUID
	IsRequired   bool
	DisplayOrder int32
}

type Meal struct {
	ID          uuid.UUID
	Name        string
	CutoffTime  string
	AvailableOn time.Time
	CreatedAt   time.Time
}

type DailyMenu struct {
	ID          uuid.UUID
	MenuDate    time.Time
	Status      string
	CutoffHour  string
	PublishedAt pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DailyMenuPack struct {
	ID          uuid.UUID
	DailyMenuID uuid.UUID
	PackID      uuid.UUID
}

type DailyMenuVariant struct {
	ID          uuid.UUID
	DailyMenuID uuid.UUID
	VariantID   uuid.UUID
	Stock       int32
}

type DailyMenuService struct {
	ID          uuid.UUID
	DailyMenuID uuid.UUID
	ServiceID   uuid.UUID
}

type DailyMenuServicePack struct {
	ID                 uuid.UUID
	DailyMenuServiceID uuid.UUID
	PackID             uuid.UUID
}

type DailyMenuServiceVariant struct {
	ID                 uuid.UUID
	DailyMenuServiceID uuid.UUID
	VariantID          uuid.UUID
	Stock              int32
}

type BusinessService struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	ServiceID  uuid.UUID
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type BusinessServicePack struct {
	ID                uuid.UUID
	BusinessServiceID uuid.UUID
	PackID            uuid.UUID
	IsActive          bool
	NextPackID        pgtype.UUID
	EffectiveDate     pgtype.Date
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Order struct {
	ID          uuid.UUID
	EmployeeID  uuid.UUID
	BusinessID  uuid.UUID
	DailyMenuID uuid.UUID
	ServiceID   pgtype.UUID
	PackID      uuid.UUID
	OrderDate   time.Time
	Status      string
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ComponentID uuid.UUID
	VariantID   uuid.UUID
	CreatedAt   time.Time
}

type DayLock struct {
	ID        uuid.UUID
	LockDate  time.Time
	CreatedAt time.Time
}

type OrderingLock struct {
	ID        uuid.UUID
	LockDate  time.Time
	Locked    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Invoice struct {
	ID            uuid.UUID
	BusinessID    uuid.UUID
	ServiceID     uuid.UUID
	InvoiceNumber string
	Status        string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Subtotal      pgtype.Numeric
	Tax           pgtype.Numeric
	Total         pgtype.Numeric
	DueDate       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type InvoiceItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	OrderID     uuid.UUID
	Description string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	TotalPrice  pgtype.Numeric
	CreatedAt   time.Time
}
