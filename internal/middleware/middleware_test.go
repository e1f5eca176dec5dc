package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"voltage-backend/internal/authorization"
	"voltage-backend/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(ContextUserID)})
	})
	router.POST("/codes", AuthMiddleware(testSecret), RequirePermission(authorization.PermissionIssueCodes), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestAuthMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	router := newAuthRouter()

	cases := map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"garbage":   "Bearer not-a-jwt",
		"expired": "Bearer " + signToken(t, jwt.MapClaims{
			"user_id": 1, "role": "student", "exp": time.Now().Add(-time.Hour).Unix(),
		}),
		"bad role": "Bearer " + signToken(t, jwt.MapClaims{
			"user_id": 1, "role": "owner", "exp": time.Now().Add(time.Hour).Unix(),
		}),
	}

	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	router := newAuthRouter()
	token := signToken(t, jwt.MapClaims{
		"user_id": 42, "phone": "01012345678", "role": "student", "exp": time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"user_id":42}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestRequirePermission(t *testing.T) {
	router := newAuthRouter()

	for role, want := range map[string]int{"student": http.StatusForbidden, "teacher": http.StatusForbidden, "admin": http.StatusCreated} {
		token := signToken(t, jwt.MapClaims{"user_id": 7, "role": role, "exp": time.Now().Add(time.Hour).Unix()})
		req := httptest.NewRequest(http.MethodPost, "/codes", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestRateLimitMiddlewareRejectsBurstOverflow(t *testing.T) {
	manager := NewRateLimitManager(context.Background())
	defer manager.Shutdown()

	cfg := &config.Config{RateLimitRequests: 2, RateLimitWindow: 60}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithRateLimitManager(manager), RateLimitMiddleware(cfg))
	router.POST("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestCleanupEvictsIdleVisitors(t *testing.T) {
	manager := NewRateLimitManager(context.Background())
	defer manager.Shutdown()

	manager.GetVisitor("10.0.0.1", 10, 60, 0)
	manager.GetRedemptionLimiter("user:1", 5, 300)

	manager.cleanup(time.Now().Add(5 * time.Minute))
	if len(manager.visitors) != 0 {
		t.Fatalf("expected idle general visitor evicted")
	}
	if len(manager.redemptions) != 1 {
		t.Fatalf("expected redemption limiter to outlive the general idle timeout")
	}

	manager.cleanup(time.Now().Add(time.Hour))
	if len(manager.redemptions) != 0 {
		t.Fatalf("expected redemption limiter evicted")
	}
}

func TestRequestIDIsGeneratedAndEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get(requestIDHeader)) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected incoming id echoed, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/chapters", OptionalAuthMiddleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(ContextUserID)})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chapters", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"user_id":0}` {
		t.Fatalf("anonymous request: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/chapters", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"user_id":0}` {
		t.Fatalf("invalid token must be ignored: %d %s", rec.Code, rec.Body.String())
	}

	token := signToken(t, jwt.MapClaims{"user_id": 9, "role": "student", "exp": time.Now().Add(time.Hour).Unix()})
	req = httptest.NewRequest(http.MethodGet, "/chapters", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != `{"user_id":9}` {
		t.Fatalf("expected identity attached, got %s", rec.Body.String())
	}
}
