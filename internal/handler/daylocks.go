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

// DayLockServicer defines the service methods needed by day lock handlers.
// Satisfied by *service.DayLockService; narrow interface for testability.
type DayLockServicer interface {
	LockDay(ctx context.Context, date time.Time) (*service.DayLockResult, error)
	SetOrderingLock(ctx context.Context, date time.Time, locked bool) (database.OrderingLock, error)
}

// DayLockHandler handles day lock and ordering lock endpoints.
type DayLockHandler struct {
	svc DayLockServicer
	hub Broadcaster
}

// NewDayLockHandler creates a new DayLockHandler.
func NewDayLockHandler(svc DayLockServicer, hub Broadcaster) *DayLockHandler {
	return &DayLockHandler{svc: svc, hub: hub}
}

// RegisterRoutes registers lock endpoints on the given Chi router.
func (h *DayLockHandler) RegisterRoutes(r chi.Router) {
	r.Post("/day-locks", h.LockDay)
	r.Put("/ordering-locks", h.SetOrderingLock)
}

// --- Request / Response types ---

type lockDayRequest struct {
	Date string `json:"date"`
}

type orderingLockRequest struct {
	Date   string `json:"date"`
	Locked bool   `json:"locked"`
}

type dayLockResponse struct {
	ID           uuid.UUID `json:"id"`
	LockDate     string    `json:"lock_date"`
	LockedOrders int64     `json:"locked_orders"`
	CreatedAt    time.Time `json:"created_at"`
}

type orderingLockResponse struct {
	ID       uuid.UUID `json:"id"`
	LockDate string    `json:"lock_date"`
	Locked   bool      `json:"locked"`
}

// --- Handlers ---

// LockDay handles POST /day-locks. Locking a day is terminal: every open
// order for the date is locked in the same transaction.
func (h *DayLockHandler) LockDay(w http.ResponseWriter, r *http.Request) {
	var req lockDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	date, err := service.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	result, err := h.svc.LockDay(r.Context(), date)
	if err != nil {
		if errors.Is(err, service.ErrDayAlreadyLocked) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: lock day: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lockDate := service.DateOf(result.Lock.LockDate).Format(time.DateOnly)
	if h.hub != nil {
		h.hub.BroadcastAll(ws.MarshalPayload(enum.EventDayLocked, map[string]string{
			"lock_date": lockDate,
		}))
	}

	writeJSON(w, http.StatusCreated, dayLockResponse{
		ID:           result.Lock.ID,
		LockDate:     lockDate,
		LockedOrders: result.LockedOrders,
		CreatedAt:    result.Lock.CreatedAt,
	})
}

// SetOrderingLock handles PUT /ordering-locks. Unlike a day lock, the manual
// ordering lock is reversible.
func (h *DayLockHandler) SetOrderingLock(w http.ResponseWriter, r *http.Request) {
	var req orderingLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	date, err := service.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
		return
	}

	lock, err := h.svc.SetOrderingLock(r.Context(), date, req.Locked)
	if err != nil {
		log.Printf("ERROR: set ordering lock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderingLockResponse{
		ID:       lock.ID,
		LockDate: service.DateOf(lock.LockDate).Format(time.DateOnly),
		Locked:   lock.Locked,
	})
}
