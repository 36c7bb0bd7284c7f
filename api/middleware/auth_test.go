package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/auth"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "tablebite", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, _ := mintTestToken(t, enums.SystemRoleCustomer)
	handler := Auth(testJWT, stubSessionVerifier{ok: false}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	token, userID := mintTestToken(t, enums.SystemRoleStaff)

	var captured struct {
		user   string
		role   string
		access string
	}
	handler := Auth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		captured.access = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != userID.String() {
		t.Fatalf("expected user %s got %s", userID, captured.user)
	}
	if captured.role != string(enums.SystemRoleStaff) {
		t.Fatalf("expected role staff got %s", captured.role)
	}
	if captured.access == "" {
		t.Fatal("expected access id in context")
	}
}

func TestOptionalAuthServesAnonymousOnBadToken(t *testing.T) {
	var user string
	handler := OptionalAuth(testJWT, stubSessionVerifier{ok: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"", "Bearer expired.token.value"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
		if user != "" {
			t.Fatalf("expected anonymous request, got user %s", user)
		}
	}
}

func TestOptionalAuthSurfacesSessionStoreOutage(t *testing.T) {
	token, _ := mintTestToken(t, enums.SystemRoleCustomer)
	handler := OptionalAuth(testJWT, stubSessionVerifier{err: errors.New("redis down")}, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	handler := RequireStaff(nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: enums.SystemRoleCustomer}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: enums.SystemRoleStaff}))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestShopperFromContext(t *testing.T) {
	visitor := &session.Visitor{Token: "tok"}
	userID := uuid.New()

	ctx := WithVisitor(context.Background(), visitor)
	shopper := ShopperFromContext(ctx)
	if shopper.IsAuthenticated() || shopper.SessionKey() != "tok" {
		t.Fatalf("unexpected anonymous shopper %+v", shopper)
	}

	shopper = ShopperFromContext(WithPrincipal(ctx, Principal{UserID: userID, Role: enums.SystemRoleCustomer}))
	if !shopper.IsAuthenticated() || *shopper.UserID != userID {
		t.Fatalf("expected authenticated shopper %s", userID)
	}
}

func mintTestToken(t *testing.T, role enums.SystemRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		Username: "lan",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token, userID
}

type stubSessionVerifier struct {
	ok  bool
	err error
}

func (s stubSessionVerifier) HasSession(ctx context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.ok, nil
}

func TestRoleGuardsRejectAnonymous(t *testing.T) {
	for name, mw := range map[string]func(http.Handler) http.Handler{
		"user":  RequireUser(nil),
		"staff": RequireStaff(nil),
	} {
		resp := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", name, resp.Code)
		}
	}

	multi := RequireRole(nil, enums.SystemRoleCustomer, enums.SystemRoleStaff)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: uuid.New(), Role: enums.SystemRoleCustomer}))
	resp := httptest.NewRecorder()
	multi.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
