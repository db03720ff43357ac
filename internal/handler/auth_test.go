package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lunchpack/api/internal/auth"
	"github.com/lunchpack/api/internal/database"
	"github.com/lunchpack/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	usersByEmail map[string]database.User
	usersByID    map[uuid.UUID]database.User
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		usersByEmail: make(map[string]database.User),
		usersByID:    make(map[uuid.UUID]database.User),
	}
}

func (m *mockAuthStore) add(user database.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	user, ok := m.usersByEmail[email]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return user, nil
}

// --- Test helpers ---

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func testUser(t *testing.T, email, password string, businessID *uuid.UUID, role string) database.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if businessID != nil {
		user.BusinessID = pgtype.UUID{Bytes: *businessID, Valid: true}
	}
	return user
}

func doJSONRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestLogin_HappyPath(t *testing.T) {
	store := newMockAuthStore()
	businessID := uuid.New()
	user := testUser(t, "employee@acme.com", "secret123", &businessID, "EMPLOYEE")
	store.add(user)

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "employee@acme.com",
		"password": "secret123",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["access_token"] == "" || resp["access_token"] == nil {
		t.Error("access_token missing")
	}
	if resp["refresh_token"] == "" || resp["refresh_token"] == nil {
		t.Error("refresh_token missing")
	}

	userResp, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("user not present in response")
	}
	if userResp["email"] != "employee@acme.com" {
		t.Errorf("email: got %v, want employee@acme.com", userResp["email"])
	}
	if userResp["business_id"] != businessID.String() {
		t.Errorf("business_id: got %v, want %v", userResp["business_id"], businessID)
	}

	// Access token must parse and carry the business.
	claims, err := auth.ValidateToken(testJWTSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("validate access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("claims user_id: got %v, want %v", claims.UserID, user.ID)
	}
	if claims.BusinessID == nil || *claims.BusinessID != businessID {
		t.Errorf("claims business_id: got %v, want %v", claims.BusinessID, businessID)
	}
}

func TestLogin_SuperAdminHasNoBusiness(t *testing.T) {
	store := newMockAuthStore()
	user := testUser(t, "ops@lunchpack.io", "secret123", nil, "SUPER_ADMIN")
	store.add(user)

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "ops@lunchpack.io",
		"password": "secret123",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	userResp := resp["user"].(map[string]interface{})
	if userResp["business_id"] != nil {
		t.Errorf("business_id: got %v, want null", userResp["business_id"])
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	store.add(testUser(t, "employee@acme.com", "secret123", nil, "EMPLOYEE"))

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "employee@acme.com",
		"password": "wrong",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "nobody@acme.com",
		"password": "secret123",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	store := newMockAuthStore()
	user := testUser(t, "former@acme.com", "secret123", nil, "EMPLOYEE")
	user.IsActive = false
	store.add(user)

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email":    "former@acme.com",
		"password": "secret123",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doJSONRequest(t, router, "POST", "/auth/login", map[string]string{
		"email": "employee@acme.com",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestRefresh_HappyPath(t *testing.T) {
	store := newMockAuthStore()
	businessID := uuid.New()
	user := testUser(t, "employee@acme.com", "secret123", &businessID, "EMPLOYEE")
	store.add(user)

	refreshToken, err := auth.GenerateRefreshToken(testJWTSecret, user.ID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	router := setupAuthRouter(store)
	rr := doJSONRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["access_token"] == "" || resp["access_token"] == nil {
		t.Error("access_token missing")
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	router := setupAuthRouter(newMockAuthStore())
	rr := doJSONRequest(t, router, "POST", "/auth/refresh", map[string]string{
		"refresh_token": "not-a-jwt",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusUnauthorized, rr.Body.String())
	}
}
