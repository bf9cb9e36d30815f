package product

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) (*gin.Engine, *tenant.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := tenant.NewRegistry(tenant.NewSQLiteDriver(t.TempDir()))
	t.Cleanup(func() { reg.Close() })

	r := gin.New()
	g := r.Group("/api", middleware.TenantRequired(reg, "secret"))
	h := NewHandler()
	g.GET("/products", h.List)
	g.POST("/products", h.Create)
	g.GET("/products/search/:query", h.Search)
	g.GET("/products/code/:code", h.GetByCode)
	g.GET("/products/:id", h.Get)
	g.PUT("/products/:id", h.Update)
	g.DELETE("/products/:id", h.Delete)
	return r, reg
}

func do(r http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.EmailHeader, user)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type productResponse struct {
	Data database.Product `json:"data"`
}

func TestProductCRUD(t *testing.T) {
	r, _ := newTestRouter(t)
	const user = "shop@example.com"

	w := do(r, http.MethodPost, "/api/products", user, gin.H{
		"name": "Bath Soap", "code": "SOAP", "price": 45, "costPrice": 100, "cgst": 9, "sgst": 9, "quantity": 10,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created productResponse
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Data.CostPrice != 118 {
		t.Errorf("expected cost stored with GST 118, got %v", created.Data.CostPrice)
	}

	w = do(r, http.MethodPost, "/api/products", user, gin.H{"name": "Other", "code": "SOAP", "price": 1})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate code, got %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/products", user, gin.H{"name": "No code"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without code, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/products/code/soap", user, nil)
	if w.Code != http.StatusOK {
		t.Errorf("lookup by code: %d", w.Code)
	}
	w = do(r, http.MethodGet, "/api/products/code/bath%20soap", user, nil)
	if w.Code != http.StatusOK {
		t.Errorf("lookup by name: %d", w.Code)
	}
	w = do(r, http.MethodGet, "/api/products/code/nothing", user, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown code, got %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/products/search/ATH", user, nil)
	var found struct {
		Data []database.Product `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &found)
	if len(found.Data) != 1 {
		t.Errorf("expected search hit, got %s", w.Body.String())
	}

	id := created.Data.ID.String()
	w = do(r, http.MethodPut, "/api/products/"+id, user, gin.H{"name": "Bath Soap XL", "code": "SOAP", "price": 60, "quantity": 4})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodDelete, "/api/products/"+id, user, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: %d", w.Code)
	}
	w = do(r, http.MethodGet, "/api/products/"+id, user, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestProductTenantIsolation(t *testing.T) {
	r, reg := newTestRouter(t)

	for _, user := range []string{"a@example.com", "b@example.com"} {
		w := do(r, http.MethodPost, "/api/products", user, gin.H{"name": "Soap", "code": "ABC", "price": 10})
		if w.Code != http.StatusCreated {
			t.Fatalf("create for %s: %d %s", user, w.Code, w.Body.String())
		}
	}

	a, _ := reg.Resolve(context.Background(), "a@example.com")
	var count int64
	a.Products.Query(context.Background()).Count(&count)
	if count != 1 {
		t.Errorf("expected tenant a to hold one product, got %d", count)
	}

	w := do(r, http.MethodGet, "/api/products", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without tenant, got %d", w.Code)
	}
}

func TestProductLookupErrors(t *testing.T) {
	r, reg := newTestRouter(t)
	const user = "broken@example.com"
	missing := "/api/products/4f1c2a52-3b1d-4c6e-9a57-0d7f2b1e8c90"

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		if w := do(r, method, missing, user, gin.H{"name": "X", "code": "X", "price": 1}); w.Code != http.StatusNotFound {
			t.Errorf("%s of a missing product: expected 404, got %d", method, w.Code)
		}
	}

	tn, err := reg.Resolve(context.Background(), user)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := tn.DB.Migrator().DropTable(&database.Product{}); err != nil {
		t.Fatalf("drop products: %v", err)
	}
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		if w := do(r, method, missing, user, gin.H{"name": "X", "code": "X", "price": 1}); w.Code != http.StatusInternalServerError {
			t.Errorf("%s with broken storage: expected 500, got %d %s", method, w.Code, w.Body.String())
		}
	}
}
