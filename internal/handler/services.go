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
	"github.com/lunchpack/api/internal/auth"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/middleware"
	"github.com/lunchpack/api/internal/service"
)

// SubscriptionServicer defines the service methods needed by business
// service handlers. Satisfied by *service.SubscriptionService; narrow
// interface for testability.
type SubscriptionServicer interface {
	ActivateService(ctx context.Context, businessID, serviceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error)
	UpdateService(ctx context.Context, businessID, serviceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error)
	ListServices(ctx context.Context, businessID uuid.UUID) ([]service.BusinessServiceDetail, error)
}

// ServiceHandler handles business service subscription endpoints.
type ServiceHandler struct {
	svc SubscriptionServicer
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(svc SubscriptionServicer) *ServiceHandler {
	return &ServiceHandler{svc: svc}
}

// RegisterRoutes registers business service endpoints on the given Chi
// router. Expected to be mounted inside a business-scoped subrouter:
// /businesses/{bid}/services
func (h *ServiceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Activate)
	r.Get("/", h.List)
	r.Patch("/{sid}", h.Update)
}

// --- Request / Response types ---

type activateServiceRequest struct {
	ServiceID string   `json:"service_id"`
	PackIDs   []string `json:"pack_ids"`
}

type updateServiceRequest struct {
	IsActive *bool    `json:"is_active"`
	PackIDs  []string `json:"pack_ids"`
}

type businessServiceResponse struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	ServiceID  uuid.UUID `json:"service_id"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type businessServicePackResponse struct {
	ID            uuid.UUID  `json:"id"`
	PackID        uuid.UUID  `json:"pack_id"`
	IsActive      bool       `json:"is_active"`
	NextPackID    *uuid.UUID `json:"next_pack_id"`
	EffectiveDate *string    `json:"effective_date"`
}

type businessServiceDetailResponse struct {
	businessServiceResponse
	Packs []businessServicePackResponse `json:"packs"`
}

// --- Handlers ---

// Activate handles POST /businesses/{bid}/services.
func (h *ServiceHandler) Activate(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseBusinessID(w, r)
	if !ok {
		return
	}

	var req activateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service_id"})
		return
	}

	packIDs, err := parsePackIDs(req.PackIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack_ids"})
		return
	}

	activated, err := h.svc.ActivateService(r.Context(), businessID, serviceID, packIDs)
	if err != nil {
		h.writeServiceError(w, "activate service", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBusinessServiceResponse(activated))
}

// Update handles PATCH /businesses/{bid}/services/{sid}. Business admins may
// only submit pack changes; toggling activation requires SUPER_ADMIN.
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseBusinessID(w, r)
	if !ok {
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	serviceID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service ID"})
		return
	}

	var req updateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	packIDs, err := parsePackIDs(req.PackIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pack_ids"})
		return
	}

	updated, err := h.svc.UpdateService(r.Context(), businessID, serviceID, service.UpdateServiceParams{
		IsActive: req.IsActive,
		PackIDs:  packIDs,
	}, auth.IsElevated(claims.Role))
	if err != nil {
		h.writeServiceError(w, "update service", err)
		return
	}

	writeJSON(w, http.StatusOK, toBusinessServiceResponse(updated))
}

// List handles GET /businesses/{bid}/services.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := parseBusinessID(w, r)
	if !ok {
		return
	}

	details, err := h.svc.ListServices(r.Context(), businessID)
	if err != nil {
		log.Printf("ERROR: list business services: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]businessServiceDetailResponse, len(details))
	for i, d := range details {
		resp[i] = businessServiceDetailResponse{
			businessServiceResponse: toBusinessServiceResponse(d.BusinessService),
			Packs:                   toBusinessServicePackResponses(d.Packs),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func parseBusinessID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	businessID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid business ID"})
		return uuid.Nil, false
	}
	return businessID, true
}

func parsePackIDs(raw []string) ([]uuid.UUID, error) {
	packIDs := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		packIDs[i] = id
	}
	return packIDs, nil
}

func (h *ServiceHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrExactlyOnePack),
		errors.Is(err, service.ErrPackNotInService),
		errors.Is(err, service.ErrServiceUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrActiveToggleRestricted):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, service.ErrServiceNotActivated):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyActivated):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toBusinessServiceResponse(bs database.BusinessService) businessServiceResponse {
	return businessServiceResponse{
		ID:         bs.ID,
		BusinessID: bs.BusinessID,
		ServiceID:  bs.ServiceID,
		IsActive:   bs.IsActive,
		CreatedAt:  bs.CreatedAt,
		UpdatedAt:  bs.UpdatedAt,
	}
}

func toBusinessServicePackResponses(packs []database.BusinessServicePack) []businessServicePackResponse {
	out := make([]businessServicePackResponse, len(packs))
	for i, p := range packs {
		resp := businessServicePackResponse{
			ID:       p.ID,
			PackID:   p.PackID,
			IsActive: p.IsActive,
		}
		if p.NextPackID.Valid {
			id := uuid.UUID(p.NextPackID.Bytes)
			resp.NextPackID = &id
		}
		if p.EffectiveDate.Valid {
			d := service.DateOf(p.EffectiveDate.Time).Format(time.DateOnly)
			resp.EffectiveDate = &d
		}
		out[i] = resp
	}
	return out
}
