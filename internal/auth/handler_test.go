package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Musavvir24/my-software/internal/config"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/Musavvir24/my-software/pkg/token"
	"github.com/gin-gonic/gin"
)

const secret = "test-secret"

func setup(t *testing.T, cfg *config.Config) (*gin.Engine, *tenant.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.Options{Driver: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := database.MigrateAccounts(db); err != nil {
		t.Fatalf("MigrateAccounts: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	reg := tenant.NewRegistry(tenant.NewSQLiteDriver(t.TempDir()))
	t.Cleanup(func() { reg.Close() })

	if cfg == nil {
		cfg = &config.Config{JWTSecret: secret, JWTTTL: time.Hour, FrontendURL: "http://app.test"}
	}
	h := NewHandler(db, reg, cfg)
	limiter := middleware.NewRateLimiter(3, middleware.ByIP)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/signup", h.Signup)
	api.POST("/login", limiter.Middleware(), h.Login)
	api.GET("/auth/google", h.GoogleLogin)
	api.GET("/auth/google/callback", h.GoogleCallback)
	api.GET("/me", middleware.TenantRequired(reg, secret), h.GetMe)
	return r, reg
}

func post(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupAndLogin(t *testing.T) {
	r, reg := setup(t, nil)

	w := post(r, "/api/signup", gin.H{"name": "Asha", "email": "Asha@Example.com", "password": "secret1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret1") {
		t.Error("response leaks the password")
	}
	if keys := reg.Keys(); len(keys) != 1 {
		t.Errorf("expected signup to provision one tenant, got %v", keys)
	}

	if w := post(r, "/api/signup", gin.H{"name": "Asha", "email": "asha@example.com", "password": "secret1"}); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", w.Code)
	}
	if w := post(r, "/api/signup", gin.H{"name": "B", "email": "b@example.com", "password": "123"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", w.Code)
	}

	w = post(r, "/api/login", gin.H{"email": "asha@example.com", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var resp AuthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	claims, err := token.Parse(secret, resp.Token)
	if err != nil {
		t.Fatalf("login token does not verify: %v", err)
	}
	if claims.Email != "asha@example.com" || claims.UserID != resp.User.ID.String() {
		t.Errorf("unexpected claims %+v", claims)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "asha@example.com") {
		t.Errorf("me: %d %s", w.Code, w.Body.String())
	}

	if w := post(r, "/api/login", gin.H{"email": "asha@example.com", "password": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", w.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	r, _ := setup(t, nil)

	var last int
	for i := 0; i < 5; i++ {
		last = post(r, "/api/login", gin.H{"email": "nobody@example.com", "password": "x"}).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 after repeated attempts, got %d", last)
	}
}

func TestGoogleLogin(t *testing.T) {
	r, _ := setup(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when google is not configured, got %d", w.Code)
	}

	r, _ = setup(t, &config.Config{
		JWTSecret:          secret,
		JWTTTL:             time.Hour,
		GoogleClientID:     "client",
		GoogleClientSecret: "shh",
		GoogleRedirectURL:  "http://api.test/api/auth/google/callback",
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google", nil))
	if w.Code != http.StatusTemporaryRedirect || !strings.Contains(w.Header().Get("Location"), "accounts.google.com") {
		t.Errorf("expected redirect to google, got %d %s", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?state=forged&code=x", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for state mismatch, got %d", w.Code)
	}
}
