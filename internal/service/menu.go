package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/enum"
)

// Errors returned by the menu service.
var (
	ErrDuplicateMenuForDate = errors.New("a daily menu already exists for this date")
	ErrMenuNotFound         = errors.New("daily menu not found")
	ErrMenuNotEditable      = errors.New("daily menu may only be edited while in DRAFT")
	ErrMenuTransition       = errors.New("invalid menu status transition")
)

// MenuStore defines the DB methods needed by the menu lifecycle.
// Satisfied by *database.Queries.
type MenuStore interface {
	CreateDailyMenu(ctx context.Context, arg database.CreateDailyMenuParams) (database.DailyMenu, error)
	GetDailyMenu(ctx context.Context, id uuid.UUID) (database.DailyMenu, error)
	GetDailyMenuByDate(ctx context.Context, menuDate time.Time) (database.DailyMenu, error)
	PublishDailyMenu(ctx context.Context, id uuid.UUID) (database.DailyMenu, error)
	LockDailyMenu(ctx context.Context, id uuid.UUID) (database.DailyMenu, error)
	UnlockDailyMenu(ctx context.Context, id uuid.UUID) (database.DailyMenu, error)
	AddDailyMenuPack(ctx context.Context, arg database.AddDailyMenuPackParams) (database.DailyMenuPack, error)
	RemoveDailyMenuPack(ctx context.Context, arg database.GetDailyMenuPackParams) error
	AddDailyMenuVariant(ctx context.Context, arg database.AddDailyMenuVariantParams) (database.DailyMenuVariant, error)
	RemoveDailyMenuVariant(ctx context.Context, arg database.GetDailyMenuVariantParams) error
	AddDailyMenuService(ctx context.Context, arg database.AddDailyMenuServiceParams) (database.DailyMenuService, error)
	RemoveDailyMenuService(ctx context.Context, arg database.GetDailyMenuServiceParams) error
	AddDailyMenuServicePack(ctx context.Context, arg database.AddDailyMenuServicePackParams) (database.DailyMenuServicePack, error)
	AddDailyMenuServiceVariant(ctx context.Context, arg database.AddDailyMenuServiceVariantParams) (database.DailyMenuServiceVariant, error)
	ListDailyMenuPacks(ctx context.Context, dailyMenuID uuid.UUID) ([]database.DailyMenuPack, error)
	ListDailyMenuVariants(ctx context.Context, dailyMenuID uuid.UUID) ([]database.DailyMenuVariant, error)
	ListDailyMenuServices(ctx context.Context, dailyMenuID uuid.UUID) ([]database.DailyMenuService, error)
	ListDailyMenuServicePacks(ctx context.Context, dailyMenuServiceID uuid.UUID) ([]database.DailyMenuServicePack, error)
	ListDailyMenuServiceVariants(ctx context.Context, dailyMenuServiceID uuid.UUID) ([]database.DailyMenuServiceVariant, error)
	ListPackComponents(ctx context.Context, packID uuid.UUID) ([]database.PackComponent, error)
	GetPack(ctx context.Context, id uuid.UUID) (database.Pack, error)
	GetVariant(ctx context.Context, id uuid.UUID) (database.Variant, error)
	GetComponent(ctx context.Context, id uuid.UUID) (database.Component, error)
	CountVariantConsumptionByDate(ctx context.Context, orderDate time.Time) ([]database.VariantConsumptionRow, error)
}

// MenuService manages the daily menu lifecycle: DRAFT -> PUBLISHED -> LOCKED,
// with LOCKED -> PUBLISHED as the only reverse edge.
type MenuService struct {
	store         MenuStore
	defaultCutoff string
}

func NewMenuService(store MenuStore, defaultCutoff string) *MenuService {
	return &MenuService{store: store, defaultCutoff: defaultCutoff}
}

// CreateMenu creates the DRAFT menu for a date. At most one menu exists per
// date; the unique index on menu_date is the arbiter under concurrency.
func (s *MenuService) CreateMenu(ctx context.Context, menuDate time.Time, cutoffHour string) (database.DailyMenu, error) {
	if cutoffHour == "" {
		cutoffHour = s.defaultCutoff
	}
	if _, ok := atTimeOfDay(menuDate, cutoffHour); !ok {
		return database.DailyMenu{}, fmt.Errorf("cutoff hour %q: %w", cutoffHour, ErrInvalidDate)
	}

	menu, err := s.store.CreateDailyMenu(ctx, database.CreateDailyMenuParams{
		MenuDate:   DateOf(menuDate),
		CutoffHour: cutoffHour,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "daily_menus_menu_date_key") {
			return database.DailyMenu{}, ErrDuplicateMenuForDate
		}
		return database.DailyMenu{}, fmt.Errorf("create daily menu: %w", err)
	}
	return menu, nil
}

// requireDraft loads a menu and fails unless it is still editable.
func (s *MenuService) requireDraft(ctx context.Context, menuID uuid.UUID) (database.DailyMenu, error) {
	menu, err := s.store.GetDailyMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuNotFound
		}
		return database.DailyMenu{}, fmt.Errorf("get daily menu: %w", err)
	}
	if menu.Status != enum.MenuStatusDraft {
		return database.DailyMenu{}, ErrMenuNotEditable
	}
	return menu, nil
}

func (s *MenuService) AddPack(ctx context.Context, menuID, packID uuid.UUID) (database.DailyMenuPack, error) {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return database.DailyMenuPack{}, err
	}
	return s.store.AddDailyMenuPack(ctx, database.AddDailyMenuPackParams{DailyMenuID: menuID, PackID: packID})
}

func (s *MenuService) RemovePack(ctx context.Context, menuID, packID uuid.UUID) error {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return err
	}
	return s.store.RemoveDailyMenuPack(ctx, database.GetDailyMenuPackParams{DailyMenuID: menuID, PackID: packID})
}

func (s *MenuService) AddVariant(ctx context.Context, menuID, variantID uuid.UUID, stock int32) (database.DailyMenuVariant, error) {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return database.DailyMenuVariant{}, err
	}
	return s.store.AddDailyMenuVariant(ctx, database.AddDailyMenuVariantParams{DailyMenuID: menuID, VariantID: variantID, Stock: stock})
}

func (s *MenuService) RemoveVariant(ctx context.Context, menuID, variantID uuid.UUID) error {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return err
	}
	return s.store.RemoveDailyMenuVariant(ctx, database.GetDailyMenuVariantParams{DailyMenuID: menuID, VariantID: variantID})
}

func (s *MenuService) AddService(ctx context.Context, menuID, serviceID uuid.UUID) (database.DailyMenuService, error) {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return database.DailyMenuService{}, err
	}
	return s.store.AddDailyMenuService(ctx, database.AddDailyMenuServiceParams{DailyMenuID: menuID, ServiceID: serviceID})
}

func (s *MenuService) RemoveService(ctx context.Context, menuID, serviceID uuid.UUID) error {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return err
	}
	return s.store.RemoveDailyMenuService(ctx, database.GetDailyMenuServiceParams{DailyMenuID: menuID, ServiceID: serviceID})
}

func (s *MenuService) AddServicePack(ctx context.Context, menuID, dailyMenuServiceID, packID uuid.UUID) (database.DailyMenuServicePack, error) {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return database.DailyMenuServicePack{}, err
	}
	return s.store.AddDailyMenuServicePack(ctx, database.AddDailyMenuServicePackParams{DailyMenuServiceID: dailyMenuServiceID, PackID: packID})
}

func (s *MenuService) AddServiceVariant(ctx context.Context, menuID, dailyMenuServiceID, variantID uuid.UUID, stock int32) (database.DailyMenuServiceVariant, error) {
	if _, err := s.requireDraft(ctx, menuID); err != nil {
		return database.DailyMenuServiceVariant{}, err
	}
	return s.store.AddDailyMenuServiceVariant(ctx, database.AddDailyMenuServiceVariantParams{DailyMenuServiceID: dailyMenuServiceID, VariantID: variantID, Stock: stock})
}

// PublishResult is the outcome of publishing a menu.
type PublishResult struct {
	Menu     database.DailyMenu
	Warnings []string
}

// Publish transitions DRAFT -> PUBLISHED. Guardrail findings are returned as
// warnings and never block the publish.
func (s *MenuService) Publish(ctx context.Context, menuID uuid.UUID) (*PublishResult, error) {
	menu, err := s.store.GetDailyMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("get daily menu: %w", err)
	}

	warnings, err := s.publishWarnings(ctx, menu)
	if err != nil {
		return nil, err
	}

	published, err := s.store.PublishDailyMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuTransition
		}
		return nil, fmt.Errorf("publish daily menu: %w", err)
	}
	return &PublishResult{Menu: published, Warnings: warnings}, nil
}

// Lock transitions PUBLISHED -> LOCKED. This freezes menu visibility for
// ordering; order finality is the day-lock engine's concern.
func (s *MenuService) Lock(ctx context.Context, menuID uuid.UUID) (database.DailyMenu, error) {
	menu, err := s.store.LockDailyMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuTransition
		}
		return database.DailyMenu{}, fmt.Errorf("lock daily menu: %w", err)
	}
	return menu, nil
}

// Unlock transitions LOCKED -> PUBLISHED. A menu never returns to DRAFT.
func (s *MenuService) Unlock(ctx context.Context, menuID uuid.UUID) (database.DailyMenu, error) {
	menu, err := s.store.UnlockDailyMenu(ctx, menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuTransition
		}
		return database.DailyMenu{}, fmt.Errorf("unlock daily menu: %w", err)
	}
	return menu, nil
}

func (s *MenuService) GetMenuByDate(ctx context.Context, menuDate time.Time) (database.DailyMenu, error) {
	menu, err := s.store.GetDailyMenuByDate(ctx, DateOf(menuDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DailyMenu{}, ErrMenuNotFound
		}
		return database.DailyMenu{}, fmt.Errorf("get daily menu by date: %w", err)
	}
	return menu, nil
}

// variantInfo caches variant rows while computing warnings.
type variantInfo struct {
	variant database.Variant
	stock   int32
}

// publishWarnings runs the publish-time guardrails:
//   - every required pack component needs at least one covering variant with
//     stock remaining (menu-level variants for legacy packs, service-level
//     variants for service packs);
//   - a component with exactly one available variant offers no real choice;
//   - a variant stocked below yesterday's locked consumption is likely
//     under-provisioned.
func (s *MenuService) publishWarnings(ctx context.Context, menu database.DailyMenu) ([]string, error) {
	var warnings []string

	menuVariants, err := s.store.ListDailyMenuVariants(ctx, menu.ID)
	if err != nil {
		return nil, fmt.Errorf("list menu variants: %w", err)
	}
	menuAvail, err := s.availabilityByComponent(ctx, menuVariantRows(menuVariants))
	if err != nil {
		return nil, err
	}

	menuPacks, err := s.store.ListDailyMenuPacks(ctx, menu.ID)
	if err != nil {
		return nil, fmt.Errorf("list menu packs: %w", err)
	}
	for _, mp := range menuPacks {
		w, err := s.coverageWarnings(ctx, mp.PackID, menuAvail)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}

	menuServices, err := s.store.ListDailyMenuServices(ctx, menu.ID)
	if err != nil {
		return nil, fmt.Errorf("list menu services: %w", err)
	}
	var serviceVariants []database.DailyMenuServiceVariant
	for _, dms := range menuServices {
		svVariants, err := s.store.ListDailyMenuServiceVariants(ctx, dms.ID)
		if err != nil {
			return nil, fmt.Errorf("list menu service variants: %w", err)
		}
		serviceVariants = append(serviceVariants, svVariants...)

		svcAvail, err := s.availabilityByComponent(ctx, serviceVariantRows(svVariants))
		if err != nil {
			return nil, err
		}

		svcPacks, err := s.store.ListDailyMenuServicePacks(ctx, dms.ID)
		if err != nil {
			return nil, fmt.Errorf("list menu service packs: %w", err)
		}
		for _, sp := range svcPacks {
			w, err := s.coverageWarnings(ctx, sp.PackID, svcAvail)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, w...)
		}
	}

	w, err := s.demandWarnings(ctx, menu, menuVariants, serviceVariants)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, w...)

	return warnings, nil
}

type stockRow struct {
	variantID uuid.UUID
	stock     int32
}

func menuVariantRows(rows []database.DailyMenuVariant) []stockRow {
	out := make([]stockRow, len(rows))
	for i, r := range rows {
		out[i] = stockRow{variantID: r.VariantID, stock: r.Stock}
	}
	return out
}

func serviceVariantRows(rows []database.DailyMenuServiceVariant) []stockRow {
	out := make([]stockRow, len(rows))
	for i, r := range rows {
		out[i] = stockRow{variantID: r.VariantID, stock: r.Stock}
	}
	return out
}

// availabilityByComponent counts in-stock variants per component.
func (s *MenuService) availabilityByComponent(ctx context.Context, rows []stockRow) (map[uuid.UUID]int, error) {
	avail := make(map[uuid.UUID]int)
	for _, r := range rows {
		if r.stock <= 0 {
			continue
		}
		variant, err := s.store.GetVariant(ctx, r.variantID)
		if err != nil {
			return nil, fmt.Errorf("get variant: %w", err)
		}
		avail[variant.ComponentID]++
	}
	return avail, nil
}

func (s *MenuService) coverageWarnings(ctx context.Context, packID uuid.UUID, avail map[uuid.UUID]int) ([]string, error) {
	pack, err := s.store.GetPack(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("get pack: %w", err)
	}
	packComponents, err := s.store.ListPackComponents(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("list pack components: %w", err)
	}

	var warnings []string
	for _, pc := range packComponents {
		component, err := s.store.GetComponent(ctx, pc.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("get component: %w", err)
		}
		n := avail[pc.ComponentID]
		if pc.IsRequired && n == 0 {
			warnings = append(warnings, fmt.Sprintf("pack %q: required component %q has no available variant", pack.Name, component.Name))
			continue
		}
		if n == 1 {
			warnings = append(warnings, fmt.Sprintf("pack %q: component %q offers only one variant choice", pack.Name, component.Name))
		}
	}
	return warnings, nil
}

// demandWarnings compares today's configured stock against yesterday's locked
// consumption per variant id.
func (s *MenuService) demandWarnings(ctx context.Context, menu database.DailyMenu, menuVariants []database.DailyMenuVariant, serviceVariants []database.DailyMenuServiceVariant) ([]string, error) {
	yesterday := DateOf(menu.MenuDate).AddDate(0, 0, -1)
	consumption, err := s.store.CountVariantConsumptionByDate(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("count variant consumption: %w", err)
	}
	if len(consumption) == 0 {
		return nil, nil
	}
	consumed := make(map[uuid.UUID]int64, len(consumption))
	for _, c := range consumption {
		consumed[c.VariantID] = c.Consumed
	}

	stocks := menuVariantRows(menuVariants)
	stocks = append(stocks, serviceVariantRows(serviceVariants)...)

	var warnings []string
	for _, r := range stocks {
		want, ok := consumed[r.variantID]
		if !ok || int64(r.stock) >= want {
			continue
		}
		variant, err := s.store.GetVariant(ctx, r.variantID)
		if err != nil {
			return nil, fmt.Errorf("get variant: %w", err)
		}
		warnings = append(warnings, fmt.Sprintf("variant %q: stock %d is below yesterday's consumption of %d", variant.Name, r.stock, want))
	}
	return warnings, nil
}
