package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fundbridge/fundbridge/internal/config"
	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/http/api/handlers"
	"github.com/fundbridge/fundbridge/internal/models"
	"github.com/fundbridge/fundbridge/internal/payment"
	"github.com/fundbridge/fundbridge/internal/ratelimit"
	"github.com/fundbridge/fundbridge/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWT = config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func seedActiveUser(t *testing.T, conn *gorm.DB, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		FullName: "Test User",
		Email:    "mw-" + string(role) + "@example.com",
		Password: "hash",
		Role:     role,
		Active:   true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func issueFor(t *testing.T, userID uint64) string {
	t.Helper()
	token, err := security.IssueToken(userID, []byte(testJWT.Secret), testJWT.Expiry, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func whoAmI(c *gin.Context) {
	id, _ := c.Get(handlers.CtxUserID)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func TestAuthMiddleware_RequiredRejectsMissingAndBadTokens(t *testing.T) {
	conn := openTestDB(t)
	engine := gin.New()
	engine.GET("/secure", authMiddleware(conn, testJWT, true), whoAmI)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/secure", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("malformed token: status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_AcceptsBearerAndCookie(t *testing.T) {
	conn := openTestDB(t)
	user := seedActiveUser(t, conn, models.RoleUser)
	token := issueFor(t, user.ID)

	engine := gin.New()
	engine.GET("/secure", authMiddleware(conn, testJWT, true), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer token: status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cookie token: status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_HeaderWinsOverCookie(t *testing.T) {
	conn := openTestDB(t)
	user := seedActiveUser(t, conn, models.RoleUser)
	good := issueFor(t, user.ID)

	engine := gin.New()
	engine.GET("/secure", authMiddleware(conn, testJWT, true), whoAmI)

	// A stale cookie must not rescue a bad Authorization header.
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	req.AddCookie(&http.Cookie{Name: "token", Value: good})
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("header precedence: status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddleware_OptionalPassesGuestsThrough(t *testing.T) {
	conn := openTestDB(t)
	engine := gin.New()
	engine.GET("/open", authMiddleware(conn, testJWT, false), whoAmI)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("guest: status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("guest with bad token: status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_InactiveUserRejected(t *testing.T) {
	conn := openTestDB(t)
	user := seedActiveUser(t, conn, models.RoleUser)
	if err := conn.Model(user).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	engine := gin.New()
	engine.GET("/secure", authMiddleware(conn, testJWT, true), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: status = %d, want 401", rec.Code)
	}
}

func TestRequireRoles_AdminOnly(t *testing.T) {
	conn := openTestDB(t)
	admin := seedActiveUser(t, conn, models.RoleAdmin)
	user := seedActiveUser(t, conn, models.RoleUser)

	engine := gin.New()
	engine.GET("/admin", authMiddleware(conn, testJWT, true), requireRoles(models.RoleAdmin), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, admin.ID))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: status = %d, want 403", rec.Code)
	}
}

func TestRateLimitMiddleware_EnforcesBudget(t *testing.T) {
	engine := gin.New()
	engine.GET("/limited", rateLimitMiddleware(ratelimit.NewMemoryLimiter(), 2), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over budget: status = %d, want 429", rec.Code)
	}
}

// newAPIEngine wires the full route surface the way RunServer does, with an
// in-process limiter holding the given auth budget.
func newAPIEngine(t *testing.T, conn *gorm.DB, authRateLimit int) *gin.Engine {
	t.Helper()
	cfg := &config.Config{JWT: testJWT, AuthRateLimit: authRateLimit}
	gateway := payment.NewRazorpayGateway("rzp_test_key", "gw-secret")
	engine := gin.New()
	RegisterRoutes(engine, Deps{
		DB:            conn,
		Config:        cfg,
		Auth:          handlers.NewAuthHandler(conn, testJWT, nil, 4, false),
		Payments:      handlers.NewPaymentHandler(payment.NewOrderService(conn, gateway, "rzp_test_key", 18), payment.NewVerificationService(conn, []byte("gw-secret")), false),
		Contributions: handlers.NewContributionHandler(conn, false),
		Health:        handlers.NewHealthHandler(conn),
		Limiter:       ratelimit.NewMemoryLimiter(),
	})
	return engine
}

func postJSON(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_VerifyEndpointIsRateLimited(t *testing.T) {
	conn := openTestDB(t)
	engine := newAPIEngine(t, conn, 2)

	body := `{"razorpay_order_id":"order_x","razorpay_payment_id":"pay_x","razorpay_signature":"bad"}`
	for i := 0; i < 2; i++ {
		rec := postJSON(engine, "/api/payments/verify", body)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited below the budget", i+1)
		}
	}

	rec := postJSON(engine, "/api/payments/verify", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("over budget: status = %d, want 429", rec.Code)
	}
}

func TestRoutes_LogoutRequiresAuthentication(t *testing.T) {
	conn := openTestDB(t)
	engine := newAPIEngine(t, conn, 0)

	rec := postJSON(engine, "/api/auth/logout", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous logout: status = %d, want 401", rec.Code)
	}

	user := seedActiveUser(t, conn, models.RoleUser)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, user.ID))
	recAuthed := httptest.NewRecorder()
	engine.ServeHTTP(recAuthed, req)
	if recAuthed.Code != http.StatusOK {
		t.Fatalf("authenticated logout: status = %d, want 200 (body %s)", recAuthed.Code, recAuthed.Body.String())
	}
}

func TestCORSMiddleware_AllowsConfiguredOrigin(t *testing.T) {
	engine := gin.New()
	engine.Use(corsMiddleware([]string{"https://app.example.com"}))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q for unlisted origin", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: status = %d, want 204", rec.Code)
	}
}
