package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fundbridge/fundbridge/internal/db"
	"github.com/fundbridge/fundbridge/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

// asIdentity simulates the authentication middleware for handler tests.
func asIdentity(id uint64, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUserID, id)
		c.Set(CtxUserRole, role)
		c.Next()
	}
}

func performJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
	return out
}

func seedUser(t *testing.T, conn *gorm.DB, user *models.User) {
	t.Helper()
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedContribution(t *testing.T, conn *gorm.DB, contribution *models.Contribution) {
	t.Helper()
	if err := conn.Create(contribution).Error; err != nil {
		t.Fatalf("seed contribution: %v", err)
	}
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
