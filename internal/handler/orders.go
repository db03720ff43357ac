package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/enum"
	"github.com/lunchpack/api/internal/middleware"
	"github.com/lunchpack/api/internal/service"
	"github.com/lunchpack/api/internal/ws"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	GetTodayOrders(ctx context.Context, employeeID uuid.UUID) ([]service.OrderWithItems, error)
}

// Broadcaster pushes events to connected WebSocket clients.
// Satisfied by *ws.Hub; narrow interface for testability.
type Broadcaster interface {
	BroadcastToBusiness(businessID uuid.UUID, event ws.Event)
	BroadcastAll(event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
	hub Broadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/today", h.Today)
}

// --- Request / Response types ---

type createOrderRequest struct {
	DailyMenuID string                  `json:"daily_menu_id"`
	PackID      string                  `json:"pack_id"`
	Selections  []orderSelectionRequest `json:"selections"`
}

type orderSelectionRequest struct {
	ComponentID string `json:"component_id"`
	VariantID   string `json:"variant_id"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	EmployeeID     uuid.UUID           `json:"employee_id"`
	BusinessID     uuid.UUID           `json:"business_id"`
	DailyMenuID    uuid.UUID           `json:"daily_menu_id"`
	ServiceID      *uuid.UUID          `json:"service_id"`
	PackID         uuid.UUID           `json:"pack_id"`
	OrderDate      string              `json:"order_date"`
	Status         string              `json:"status"`
	TotalAmount    string              `json:"total_amount"`
	AlreadyExisted bool                `json:"already_existed"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ComponentID uuid.UUID `json:"component_id"`
	VariantID   uuid.UUID `json:"variant_id"`
}

// --- Handlers ---

// Create handles POST /orders. The employee is taken from the JWT claims.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	dailyMenuID, err := uuid.Parse(req.DailyMenuID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid daily_menu_id"})
		return
	}

	packID, err := uuid.Parse(req.PackID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack_id"})
		return
	}

	for i, sel := range req.Selections {
		if sel.ComponentID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatSelectionError(i, "component_id is required"),
			})
			return
		}
		if sel.VariantID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatSelectionError(i, "variant_id is required"),
			})
			return
		}
	}

	selections := make([]service.SelectionRequest, len(req.Selections))
	for i, sel := range req.Selections {
		selections[i] = service.SelectionRequest{
			ComponentID: sel.ComponentID,
			VariantID:   sel.VariantID,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		EmployeeID:  claims.UserID,
		DailyMenuID: dailyMenuID,
		PackID:      packID,
		Selections:  selections,
	})
	if err != nil {
		// Map known service errors to appropriate HTTP status codes.
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if isOrderConflictError(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrEmployeeNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		// Duplicate submissions return the original order unchanged.
		status = http.StatusOK
	} else if h.hub != nil {
		h.hub.BroadcastToBusiness(result.Order.BusinessID, ws.MarshalPayload(enum.EventOrderCreated, map[string]string{
			"order_id":    result.Order.ID.String(),
			"employee_id": result.Order.EmployeeID.String(),
			"order_date":  service.DateOf(result.Order.OrderDate).Format(time.DateOnly),
		}))
	}

	writeJSON(w, status, toOrderResponse(result.Order, result.Items, result.AlreadyExisted))
}

// Today handles GET /orders/today.
func (h *OrderHandler) Today(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.svc.GetTodayOrders(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list today orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o.Order, o.Items, false)
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func formatSelectionError(idx int, msg string) string {
	return "selections[" + strconv.Itoa(idx) + "]: " + msg
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrPackUnavailable) ||
		errors.Is(err, service.ErrMissingRequiredComponent) ||
		errors.Is(err, service.ErrDuplicateComponentSelection) ||
		errors.Is(err, service.ErrComponentNotInPack) ||
		errors.Is(err, service.ErrVariantNotFound) ||
		errors.Is(err, service.ErrVariantComponentMismatch) ||
		errors.Is(err, service.ErrVariantNotOnMenu) ||
		errors.Is(err, service.ErrInvalidComponentID) ||
		errors.Is(err, service.ErrInvalidVariantID)
}

// isOrderConflictError checks if the error reflects current platform state
// rather than a malformed request: closed windows, sold-out stock, menus not
// open for ordering. These result in 409 Conflict.
func isOrderConflictError(err error) bool {
	return errors.Is(err, service.ErrOrderingWindowClosed) ||
		errors.Is(err, service.ErrOutOfStock) ||
		errors.Is(err, service.ErrMenuNotPublished) ||
		errors.Is(err, service.ErrNotTodaysMenu) ||
		errors.Is(err, service.ErrBusinessInactive)
}

func toOrderResponse(o database.Order, items []database.OrderItem, alreadyExisted bool) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		EmployeeID:     o.EmployeeID,
		BusinessID:     o.BusinessID,
		DailyMenuID:    o.DailyMenuID,
		PackID:         o.PackID,
		OrderDate:      service.DateOf(o.OrderDate).Format(time.DateOnly),
		Status:         o.Status,
		TotalAmount:    numericToString(o.TotalAmount),
		AlreadyExisted: alreadyExisted,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Items:          make([]orderItemResponse, len(items)),
	}
	if o.ServiceID.Valid {
		id := uuid.UUID(o.ServiceID.Bytes)
		resp.ServiceID = &id
	}
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:          item.ID,
			ComponentID: item.ComponentID,
			VariantID:   item.VariantID,
		}
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
