package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

func TestGroupByDay(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Kolkata")
	invoices := []database.Invoice{
		// 19:00 UTC is the next morning in India
		{InvoiceNumber: "INV-03", InvoiceDate: time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC), TotalAmount: 30, TotalProfit: 3},
		{InvoiceNumber: "INV-02", InvoiceDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), TotalAmount: 20.1, TotalProfit: 2},
		{InvoiceNumber: "INV-01", InvoiceDate: time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC), TotalAmount: 10.2, TotalProfit: 1},
	}

	days := GroupByDay(invoices, loc)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %+v", days)
	}
	if days[0].Date != "2024-03-02" || len(days[0].Invoices) != 1 {
		t.Errorf("unexpected first day %+v", days[0])
	}
	if days[1].Date != "2024-03-01" || days[1].TotalAmount != 30.3 || days[1].TotalProfit != 3 {
		t.Errorf("unexpected second day %+v", days[1])
	}

	if got := GroupByDay(nil, loc); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func setup(t *testing.T) (*gin.Engine, *tenant.Tenant) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := tenant.NewRegistry(tenant.NewSQLiteDriver(t.TempDir()))
	t.Cleanup(func() { reg.Close() })
	tn, err := reg.Resolve(context.Background(), "reports@example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	r := gin.New()
	g := r.Group("/api", func(c *gin.Context) {
		middleware.SetTenant(c, tn)
		c.Next()
	})
	h := NewHandler(time.UTC)
	g.GET("/sales/by-date", h.GetSalesByDate)
	g.GET("/sales/export", h.ExportSales)
	return r, tn
}

func TestSalesEndpoints(t *testing.T) {
	r, tn := setup(t)
	ctx := context.Background()

	for i, day := range []int{1, 1, 5} {
		inv := database.Invoice{
			InvoiceNumber: []string{"INV-01", "INV-02", "INV-03"}[i],
			CustomerName:  "Walk-in",
			InvoiceDate:   time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC),
			Items: datatypes.JSONSlice[database.InvoiceItem]{
				{Code: "S", Name: "Soap", Qty: 1, Price: 40, Amount: 40},
				{Code: "R", Name: "Rice", Qty: 1, Price: 60, Amount: 60},
			},
			TotalAmount: 100,
		}
		if err := tn.Invoices.Create(ctx, &inv); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales/by-date", nil))
	var resp struct {
		Data []DailySales `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data) != 2 || resp.Data[0].Date != "2024-03-05" || resp.Data[1].TotalAmount != 200 {
		t.Fatalf("unexpected grouping %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales/export?from=2024-03-01&to=2024-03-01", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(exportSheet)
	if len(rows) != 5 {
		t.Errorf("expected header plus 4 line rows, got %d", len(rows))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sales/export?from=someday", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", w.Code)
	}
}
