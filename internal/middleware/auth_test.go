package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard-console/internal/auth"
	"dashboard-console/internal/model"
)

var testCfg = auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}

func signed(t *testing.T, id model.ID) string {
	t.Helper()
	tok, err := auth.CreateToken(model.User{ID: id}, testCfg)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return tok
}

func serve(r *gin.Engine, header string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAuth_SetsViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tok := signed(t, "user-1")

	r := gin.New()
	r.GET("/", RequireAuth(testCfg), func(c *gin.Context) {
		claims, ok := ViewerFromContext(c)
		if !ok || claims.UserID != "user-1" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	if code := serve(r, "Bearer "+tok); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(r, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", code)
	}
	if code := serve(r, "Basic "+tok); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for basic scheme, got %d", code)
	}
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	session := model.User{ID: "user-1"}
	signedIn := true

	r := gin.New()
	r.GET("/", RequireAuth(testCfg), RequireSession(func() (model.User, bool) {
		return session, signedIn
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	if code := serve(r, "Bearer "+signed(t, "user-1")); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serve(r, "Bearer "+signed(t, "user-2")); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another user, got %d", code)
	}

	signedIn = false
	if code := serve(r, "Bearer "+signed(t, "user-1")); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", code)
	}
}
