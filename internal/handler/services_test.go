package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/handler"
	"github.com/lunchpack/api/internal/middleware"
	"github.com/lunchpack/api/internal/service"
)

// --- Mock SubscriptionServicer ---

type mockSubscriptionService struct {
	activateFn func(ctx context.Context, businessID, serviceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error)
	updateFn   func(ctx context.Context, businessID, serviceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error)
	listFn     func(ctx context.Context, businessID uuid.UUID) ([]service.BusinessServiceDetail, error)
}

func (m *mockSubscriptionService) ActivateService(ctx context.Context, businessID, serviceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error) {
	return m.activateFn(ctx, businessID, serviceID, packIDs)
}

func (m *mockSubscriptionService) UpdateService(ctx context.Context, businessID, serviceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error) {
	return m.updateFn(ctx, businessID, serviceID, params, elevated)
}

func (m *mockSubscriptionService) ListServices(ctx context.Context, businessID uuid.UUID) ([]service.BusinessServiceDetail, error) {
	return m.listFn(ctx, businessID)
}

// --- Test helpers ---

func setupServiceRouter(svc *mockSubscriptionService) *chi.Mux {
	h := handler.NewServiceHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/businesses/{bid}/services", func(r chi.Router) {
		r.Use(middleware.RequireBusiness)
		h.RegisterRoutes(r)
	})
	return r
}

func testBusinessService(businessID, serviceID uuid.UUID) database.BusinessService {
	now := time.Now()
	return database.BusinessService{
		ID:         uuid.New(),
		BusinessID: businessID,
		ServiceID:  serviceID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// --- Tests ---

func TestServiceActivate_HappyPath(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	packID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		activateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error) {
			if gotBusinessID != businessID {
				t.Errorf("business_id: got %v, want %v", gotBusinessID, businessID)
			}
			if len(packIDs) != 1 || packIDs[0] != packID {
				t.Errorf("pack_ids: got %v, want [%v]", packIDs, packID)
			}
			return testBusinessService(businessID, gotServiceID), nil
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/businesses/"+businessID.String()+"/services", map[string]interface{}{
		"service_id": serviceID.String(),
		"pack_ids":   []string{packID.String()},
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v, want true", resp["is_active"])
	}
}

func TestServiceActivate_ExactlyOnePack(t *testing.T) {
	businessID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		activateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error) {
			return database.BusinessService{}, service.ErrExactlyOnePack
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/businesses/"+businessID.String()+"/services", map[string]interface{}{
		"service_id": uuid.New().String(),
		"pack_ids":   []string{},
	}, claims)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestServiceActivate_AlreadyActivated(t *testing.T) {
	businessID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		activateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, packIDs []uuid.UUID) (database.BusinessService, error) {
			return database.BusinessService{}, service.ErrAlreadyActivated
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/businesses/"+businessID.String()+"/services", map[string]interface{}{
		"service_id": uuid.New().String(),
		"pack_ids":   []string{uuid.New().String()},
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestServiceUpdate_BusinessAdminIsNotElevated(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		updateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error) {
			if elevated {
				t.Error("BUSINESS_ADMIN should not be elevated")
			}
			if len(params.PackIDs) != 1 {
				t.Errorf("pack_ids count: got %d, want 1", len(params.PackIDs))
			}
			return testBusinessService(gotBusinessID, gotServiceID), nil
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "PATCH",
		"/businesses/"+businessID.String()+"/services/"+serviceID.String(),
		map[string]interface{}{"pack_ids": []string{uuid.New().String()}}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestServiceUpdate_SuperAdminIsElevated(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	claims := adminClaims()

	svc := &mockSubscriptionService{
		updateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error) {
			if !elevated {
				t.Error("SUPER_ADMIN should be elevated")
			}
			if params.IsActive == nil || *params.IsActive != false {
				t.Errorf("is_active: got %v, want false", params.IsActive)
			}
			return testBusinessService(gotBusinessID, gotServiceID), nil
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "PATCH",
		"/businesses/"+businessID.String()+"/services/"+serviceID.String(),
		map[string]interface{}{"is_active": false}, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestServiceUpdate_ActiveToggleRestricted(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		updateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error) {
			return database.BusinessService{}, service.ErrActiveToggleRestricted
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "PATCH",
		"/businesses/"+businessID.String()+"/services/"+serviceID.String(),
		map[string]interface{}{"is_active": false}, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
	}
}

func TestServiceUpdate_NotActivated(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	claims := adminClaims()

	svc := &mockSubscriptionService{
		updateFn: func(ctx context.Context, gotBusinessID, gotServiceID uuid.UUID, params service.UpdateServiceParams, elevated bool) (database.BusinessService, error) {
			return database.BusinessService{}, service.ErrServiceNotActivated
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "PATCH",
		"/businesses/"+businessID.String()+"/services/"+serviceID.String(),
		map[string]interface{}{"pack_ids": []string{uuid.New().String()}}, claims)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestServiceList_IncludesPendingChange(t *testing.T) {
	businessID := uuid.New()
	serviceID := uuid.New()
	nextPackID := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		listFn: func(ctx context.Context, gotBusinessID uuid.UUID) ([]service.BusinessServiceDetail, error) {
			return []service.BusinessServiceDetail{
				{
					BusinessService: testBusinessService(businessID, serviceID),
					Packs: []database.BusinessServicePack{
						{
							ID:         uuid.New(),
							PackID:     uuid.New(),
							IsActive:   true,
							NextPackID: pgtype.UUID{Bytes: nextPackID, Valid: true},
							EffectiveDate: pgtype.Date{
								Time:  time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
								Valid: true,
							},
						},
					},
				},
			}, nil
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/businesses/"+businessID.String()+"/services", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeList(t, rr)
	if len(resp) != 1 {
		t.Fatalf("services count: got %d, want 1", len(resp))
	}
	packs, ok := resp[0]["packs"].([]interface{})
	if !ok || len(packs) != 1 {
		t.Fatalf("packs: got %v, want 1 pack", resp[0]["packs"])
	}
	pack := packs[0].(map[string]interface{})
	if pack["next_pack_id"] != nextPackID.String() {
		t.Errorf("next_pack_id: got %v, want %v", pack["next_pack_id"], nextPackID)
	}
	if pack["effective_date"] != "2026-03-16" {
		t.Errorf("effective_date: got %v, want 2026-03-16", pack["effective_date"])
	}
}

func TestServiceList_OtherBusinessForbidden(t *testing.T) {
	businessID := uuid.New()
	otherBusiness := uuid.New()
	claims := employeeClaims(businessID)
	claims.Role = "BUSINESS_ADMIN"

	svc := &mockSubscriptionService{
		listFn: func(ctx context.Context, gotBusinessID uuid.UUID) ([]service.BusinessServiceDetail, error) {
			t.Fatal("service should not be called for a foreign business")
			return nil, nil
		},
	}

	router := setupServiceRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/businesses/"+otherBusiness.String()+"/services", nil, claims)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
	}
}
