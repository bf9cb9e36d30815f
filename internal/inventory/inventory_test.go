package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func newTestTenant(t *testing.T) *tenant.Tenant {
	t.Helper()
	reg := tenant.NewRegistry(tenant.NewSQLiteDriver(t.TempDir()))
	t.Cleanup(func() { reg.Close() })
	tn, err := reg.Resolve(context.Background(), "stock@example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return tn
}

func newTestRouter(tn *tenant.Tenant) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api", func(c *gin.Context) {
		middleware.SetTenant(c, tn)
		c.Next()
	})
	h := NewHandler(5)
	g.GET("/inventory", h.GetInventory)
	g.GET("/inventory/alerts", h.GetAlerts)
	g.PUT("/inventory/:id/stock", h.UpdateStock)
	imp := NewImportHandler()
	g.POST("/products/import", imp.ImportExcel)
	g.GET("/products/import/template", imp.DownloadTemplate)
	return r
}

func TestParseRecords(t *testing.T) {
	rows, err := parseRecords([][]string{
		{"Product Name", "SKU", "Qty", "MRP", "Cost", "CGST %", "SGST %"},
		{"Soap", "SOAP", "10", "45", "30", "9%", "9"},
		{"", "", "", "", "", "", ""},
		{"Rice", "RICE", "abc"},
	})
	if err != nil {
		t.Fatalf("parseRecords: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Code != "SOAP" || rows[0].Quantity != 10 || rows[0].CGST != 9 || rows[0].Line != 2 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].Quantity != 0 || rows[1].Line != 4 {
		t.Errorf("unexpected short row %+v", rows[1])
	}

	if _, err := parseRecords([][]string{{"Qty"}, {"1"}}); err == nil {
		t.Error("expected error without name and code columns")
	}
	if _, err := parseRecords([][]string{{"Name", "Code"}}); err == nil {
		t.Error("expected error without data rows")
	}
}

func TestImport(t *testing.T) {
	tn := newTestTenant(t)
	ctx := context.Background()
	if err := tn.Products.Create(ctx, &database.Product{Name: "Old Soap", Code: "SOAP", Price: 40, Quantity: 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := Import(ctx, tn, []ImportRow{
		{Line: 2, Name: "Soap", Code: "SOAP", Quantity: 12, Price: 45},
		{Line: 3, Name: "Rice", Code: "RICE", Quantity: 5, Price: 120, CostPrice: 100, CGST: 2.5, SGST: 2.5},
		{Line: 4, Name: "No code"},
	})
	if res.CreatedCount != 1 || res.UpdatedCount != 1 || res.FailedCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	var soap, rice database.Product
	tn.Products.Query(ctx).Where("code = ?", "SOAP").Take(&soap)
	tn.Products.Query(ctx).Where("code = ?", "RICE").Take(&rice)
	if soap.Name != "Soap" || soap.Quantity != 12 || soap.Price != 45 {
		t.Errorf("unexpected updated product %+v", soap)
	}
	if rice.CostPrice != 105 {
		t.Errorf("expected cost with GST 105, got %v", rice.CostPrice)
	}
}

func TestImportHandler(t *testing.T) {
	tn := newTestTenant(t)
	r := newTestRouter(tn)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/import/template", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("template: %d", w.Code)
	}
	if _, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Fatalf("template is not a workbook: %v", err)
	}

	// the template itself is a valid import file
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "products.xlsx")
	part.Write(w.Body.Bytes())
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	var count int64
	tn.Products.Query(context.Background()).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 imported products, got %d", count)
	}

	body.Reset()
	mw = multipart.NewWriter(&body)
	part, _ = mw.CreateFormFile("file", "products.pdf")
	part.Write([]byte("nope"))
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported file, got %d", w.Code)
	}
}

func TestUpdateStockAndAlerts(t *testing.T) {
	tn := newTestTenant(t)
	ctx := context.Background()
	p := &database.Product{Name: "Oil", Code: "OIL", Price: 150, Quantity: 8}
	if err := tn.Products.Create(ctx, p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := newTestRouter(tn)

	adjust := func(v float64) *httptest.ResponseRecorder {
		b, _ := json.Marshal(gin.H{"adjustment": v, "reason": "count"})
		req := httptest.NewRequest(http.MethodPut, "/api/inventory/"+p.ID.String()+"/stock", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := adjust(-4); w.Code != http.StatusOK {
		t.Fatalf("adjust: %d %s", w.Code, w.Body.String())
	}
	got, _ := tn.Products.Get(ctx, p.ID.String())
	if got.Quantity != 4 {
		t.Errorf("expected 4, got %v", got.Quantity)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/inventory/alerts", nil))
	var alerts struct {
		Data struct {
			LowStock []database.Product `json:"lowStock"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &alerts)
	if len(alerts.Data.LowStock) != 1 {
		t.Errorf("expected one low stock product at threshold 5, got %s", w.Body.String())
	}

	adjust(-100)
	got, _ = tn.Products.Get(ctx, p.ID.String())
	if got.Quantity != 0 {
		t.Errorf("expected stock clamped at 0, got %v", got.Quantity)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/inventory/not-an-id/stock", bytes.NewReader([]byte(`{"adjustment":1}`)))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
