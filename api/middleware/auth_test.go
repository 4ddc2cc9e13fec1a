package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/vaiven-app/vaiven-backend/pkg/auth"
	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/enums"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "vaiven-test"}
}

func mintToken(t *testing.T, cfg config.JWTConfig, payload pkgauth.AccessTokenPayload, ttl time.Duration) string {
	t.Helper()
	signed, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), ttl, payload)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return signed
}

func noopLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestAuthSeedsContextFromClaims(t *testing.T) {
	t.Parallel()

	cfg := jwtTestConfig()
	userID := uuid.New()
	storeID := uuid.New()
	token := mintToken(t, cfg, pkgauth.AccessTokenPayload{
		UserID:  userID,
		Role:    enums.UserRoleStoreOwner,
		StoreID: &storeID,
	}, time.Hour)

	var gotUser, gotRole, gotStore string
	handler := Auth(cfg, noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotStore = StoreIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUser != userID.String() || gotRole != "store_owner" || gotStore != storeID.String() {
		t.Fatalf("unexpected context values %q %q %q", gotUser, gotRole, gotStore)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	handler := Auth(jwtTestConfig(), noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	t.Parallel()

	forged := mintToken(t, config.JWTConfig{Secret: "other-secret", Issuer: "vaiven-test"},
		pkgauth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer}, time.Hour)

	handler := Auth(jwtTestConfig(), noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	cfg := jwtTestConfig()
	signed, err := pkgauth.MintAccessToken(cfg, time.Now().UTC().Add(-2*time.Hour), time.Hour,
		pkgauth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}

	handler := Auth(cfg, noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireCarrierRole(t *testing.T) {
	t.Parallel()

	handler := RequireCarrierRole(noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		role string
		want int
	}{
		{"driver", http.StatusNoContent},
		{"taxi_driver", http.StatusNoContent},
		{"dispatcher", http.StatusNoContent},
		{"customer", http.StatusForbidden},
		{"store_owner", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery/x/assign", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, rec.Code)
		}
	}
}
