package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/enum"
	"github.com/lunchpack/api/internal/service"
	"github.com/lunchpack/api/internal/ws"
)

// MenuServicer defines the service methods needed by menu handlers.
// Satisfied by *service.MenuService; narrow interface for testability.
type MenuServicer interface {
	CreateMenu(ctx context.Context, menuDate time.Time, cutoffHour string) (database.DailyMenu, error)
	GetMenuByDate(ctx context.Context, menuDate time.Time) (database.DailyMenu, error)
	AddPack(ctx context.Context, menuID, packID uuid.UUID) (database.DailyMenuPack, error)
	RemovePack(ctx context.Context, menuID, packID uuid.UUID) error
	AddVariant(ctx context.Context, menuID, variantID uuid.UUID, stock int32) (database.DailyMenuVariant, error)
	RemoveVariant(ctx context.Context, menuID, variantID uuid.UUID) error
	AddService(ctx context.Context, menuID, serviceID uuid.UUID) (database.DailyMenuService, error)
	RemoveService(ctx context.Context, menuID, serviceID uuid.UUID) error
	AddServicePack(ctx context.Context, menuID, dailyMenuServiceID, packID uuid.UUID) (database.DailyMenuServicePack, error)
	AddServiceVariant(ctx context.Context, menuID, dailyMenuServiceID, variantID uuid.UUID, stock int32) (database.DailyMenuServiceVariant, error)
	Publish(ctx context.Context, menuID uuid.UUID) (*service.PublishResult, error)
	Lock(ctx context.Context, menuID uuid.UUID) (database.DailyMenu, error)
	Unlock(ctx context.Context, menuID uuid.UUID) (database.DailyMenu, error)
}

// MenuHandler handles daily menu endpoints.
type MenuHandler struct {
	svc MenuServicer
	hub Broadcaster
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer, hub Broadcaster) *MenuHandler {
	return &MenuHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers menu read endpoints available to any
// authenticated user. Expected to be mounted at /menus.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/by-date/{date}", h.GetByDate)
}

// RegisterAdminRoutes registers menu authoring and lifecycle endpoints.
// Expected to be mounted at /menus behind a SUPER_ADMIN guard.
func (h *MenuHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Post("/packs", h.AddPack)
		r.Delete("/packs/{packID}", h.RemovePack)
		r.Post("/variants", h.AddVariant)
		r.Delete("/variants/{variantID}", h.RemoveVariant)
		r.Post("/services", h.AddService)
		r.Delete("/services/{serviceID}", h.RemoveService)
		r.Post("/services/{sid}/packs", h.AddServicePack)
		r.Post("/services/{sid}/variants", h.AddServiceVariant)
		r.Post("/publish", h.Publish)
		r.Post("/lock", h.Lock)
		r.Post("/unlock", h.Unlock)
	})
}

// --- Request / Response types ---

type createMenuRequest struct {
	MenuDate   string `json:"menu_date"`
	CutoffHour string `json:"cutoff_hour"`
}

type menuPackRequest struct {
	PackID string `json:"pack_id"`
}

type menuVariantRequest struct {
	VariantID string `json:"variant_id"`
	Stock     int32  `json:"stock"`
}

type menuServiceRequest struct {
	ServiceID string `json:"service_id"`
}

type menuResponse struct {
	ID          uuid.UUID  `json:"id"`
	MenuDate    string     `json:"menu_date"`
	Status      string     `json:"status"`
	CutoffHour  string     `json:"cutoff_hour"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type publishMenuResponse struct {
	Menu     menuResponse `json:"menu"`
	Warnings []string     `json:"warnings"`
}

type menuPackResponse struct {
	ID          uuid.UUID `json:"id"`
	DailyMenuID uuid.UUID `json:"daily_menu_id"`
	PackID      uuid.UUID `json:"pack_id"`
}

type menuVariantResponse struct {
	ID          uuid.UUID `json:"id"`
	DailyMenuID uuid.UUID `json:"daily_menu_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Stock       int32     `json:"stock"`
}

type menuServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	DailyMenuID uuid.UUID `json:"daily_menu_id"`
	ServiceID   uuid.UUID `json:"service_id"`
}

type menuServicePackResponse struct {
	ID                 uuid.UUID `json:"id"`
	DailyMenuServiceID uuid.UUID `json:"daily_menu_service_id"`
	PackID             uuid.UUID `json:"pack_id"`
}

type menuServiceVariantResponse struct {
	ID                 uuid.UUID `json:"id"`
	DailyMenuServiceID uuid.UUID `json:"daily_menu_service_id"`
	VariantID          uuid.UUID `json:"variant_id"`
	Stock              int32     `json:"stock"`
}

// --- Handlers ---

// Create handles POST /menus.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.MenuDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "menu_date is required"})
		return
	}

	menuDate, err := service.ParseDate(req.MenuDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_date format, use YYYY-MM-DD"})
		return
	}

	menu, err := h.svc.CreateMenu(r.Context(), menuDate, req.CutoffHour)
	if err != nil {
		h.writeMenuError(w, "create menu", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuResponse(menu))
}

// GetByDate handles GET /menus/by-date/{date}.
func (h *MenuHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	menuDate, err := service.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	menu, err := h.svc.GetMenuByDate(r.Context(), menuDate)
	if err != nil {
		h.writeMenuError(w, "get menu by date", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// AddPack handles POST /menus/{id}/packs.
func (h *MenuHandler) AddPack(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	var req menuPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	packID, err := uuid.Parse(req.PackID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack_id"})
		return
	}

	added, err := h.svc.AddPack(r.Context(), menuID, packID)
	if err != nil {
		h.writeMenuError(w, "add menu pack", err)
		return
	}

	writeJSON(w, http.StatusCreated, menuPackResponse{
		ID:          added.ID,
		DailyMenuID: added.DailyMenuID,
		PackID:      added.PackID,
	})
}

// RemovePack handles DELETE /menus/{id}/packs/{packID}.
func (h *MenuHandler) RemovePack(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	packID, err := uuid.Parse(chi.URLParam(r, "packID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack ID"})
		return
	}

	if err := h.svc.RemovePack(r.Context(), menuID, packID); err != nil {
		h.writeMenuError(w, "remove menu pack", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddVariant handles POST /menus/{id}/variants.
func (h *MenuHandler) AddVariant(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	var req menuVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant_id"})
		return
	}

	if req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock must be >= 0"})
		return
	}

	added, err := h.svc.AddVariant(r.Context(), menuID, variantID, req.Stock)
	if err != nil {
		h.writeMenuError(w, "add menu variant", err)
		return
	}

	writeJSON(w, http.StatusCreated, menuVariantResponse{
		ID:          added.ID,
		DailyMenuID: added.DailyMenuID,
		VariantID:   added.VariantID,
		Stock:       added.Stock,
	})
}

// RemoveVariant handles DELETE /menus/{id}/variants/{variantID}.
func (h *MenuHandler) RemoveVariant(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant ID"})
		return
	}

	if err := h.svc.RemoveVariant(r.Context(), menuID, variantID); err != nil {
		h.writeMenuError(w, "remove menu variant", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddService handles POST /menus/{id}/services.
func (h *MenuHandler) AddService(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	var req menuServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service_id"})
		return
	}

	added, err := h.svc.AddService(r.Context(), menuID, serviceID)
	if err != nil {
		h.writeMenuError(w, "add menu service", err)
		return
	}

	writeJSON(w, http.StatusCreated, menuServiceResponse{
		ID:          added.ID,
		DailyMenuID: added.DailyMenuID,
		ServiceID:   added.ServiceID,
	})
}

// RemoveService handles DELETE /menus/{id}/services/{serviceID}.
func (h *MenuHandler) RemoveService(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service ID"})
		return
	}

	if err := h.svc.RemoveService(r.Context(), menuID, serviceID); err != nil {
		h.writeMenuError(w, "remove menu service", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddServicePack handles POST /menus/{id}/services/{sid}/packs.
func (h *MenuHandler) AddServicePack(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	dailyMenuServiceID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu service ID"})
		return
	}

	var req menuPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	packID, err := uuid.Parse(req.PackID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack_id"})
		return
	}

	added, err := h.svc.AddServicePack(r.Context(), menuID, dailyMenuServiceID, packID)
	if err != nil {
		h.writeMenuError(w, "add menu service pack", err)
		return
	}

	writeJSON(w, http.StatusCreated, menuServicePackResponse{
		ID:                 added.ID,
		DailyMenuServiceID: added.DailyMenuServiceID,
		PackID:             added.PackID,
	})
}

// AddServiceVariant handles POST /menus/{id}/services/{sid}/variants.
func (h *MenuHandler) AddServiceVariant(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	dailyMenuServiceID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu service ID"})
		return
	}

	var req menuVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variant_id"})
		return
	}

	if req.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stock must be >= 0"})
		return
	}

	added, err := h.svc.AddServiceVariant(r.Context(), menuID, dailyMenuServiceID, variantID, req.Stock)
	if err != nil {
		h.writeMenuError(w, "add menu service variant", err)
		return
	}

	writeJSON(w, http.StatusCreated, menuServiceVariantResponse{
		ID:                 added.ID,
		DailyMenuServiceID: added.DailyMenuServiceID,
		VariantID:          added.VariantID,
		Stock:              added.Stock,
	})
}

// Publish handles POST /menus/{id}/publish. Coverage and demand warnings are
// returned alongside the published menu but never block publication.
func (h *MenuHandler) Publish(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Publish(r.Context(), menuID)
	if err != nil {
		h.writeMenuError(w, "publish menu", err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastAll(ws.MarshalPayload(enum.EventMenuPublished, map[string]string{
			"menu_id":   result.Menu.ID.String(),
			"menu_date": service.DateOf(result.Menu.MenuDate).Format(time.DateOnly),
		}))
	}

	writeJSON(w, http.StatusOK, publishMenuResponse{
		Menu:     toMenuResponse(result.Menu),
		Warnings: result.Warnings,
	})
}

// Lock handles POST /menus/{id}/lock.
func (h *MenuHandler) Lock(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	menu, err := h.svc.Lock(r.Context(), menuID)
	if err != nil {
		h.writeMenuError(w, "lock menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// Unlock handles POST /menus/{id}/unlock.
func (h *MenuHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	menuID, ok := parseMenuID(w, r)
	if !ok {
		return
	}

	menu, err := h.svc.Unlock(r.Context(), menuID)
	if err != nil {
		h.writeMenuError(w, "unlock menu", err)
		return
	}

	writeJSON(w, http.StatusOK, toMenuResponse(menu))
}

// --- Helpers ---

func parseMenuID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	menuID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return uuid.Nil, false
	}
	return menuID, true
}

func (h *MenuHandler) writeMenuError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrMenuNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateMenuForDate),
		errors.Is(err, service.ErrMenuNotEditable),
		errors.Is(err, service.ErrMenuTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toMenuResponse(m database.DailyMenu) menuResponse {
	resp := menuResponse{
		ID:         m.ID,
		MenuDate:   service.DateOf(m.MenuDate).Format(time.DateOnly),
		Status:     m.Status,
		CutoffHour: m.CutoffHour,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.PublishedAt.Valid {
		t := m.PublishedAt.Time
		resp.PublishedAt = &t
	}
	return resp
}
