package party

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
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context, string) { c.calls++ }

func setup(t *testing.T) (*gin.Engine, *tenant.Tenant, *countingInvalidator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := tenant.NewRegistry(tenant.NewSQLiteDriver(t.TempDir()))
	t.Cleanup(func() { reg.Close() })
	tn, err := reg.Resolve(context.Background(), "ledger@example.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	inv := &countingInvalidator{}
	h := NewHandler(time.UTC, inv)

	r := gin.New()
	g := r.Group("/api", func(c *gin.Context) {
		middleware.SetTenant(c, tn)
		c.Next()
	})
	g.GET("/parties", h.List)
	g.POST("/parties", h.Create)
	g.DELETE("/parties/:partyId", h.Delete)
	g.POST("/parties/:partyId/bills", h.AddBill)
	g.PUT("/parties/:partyId/bills/:billId", h.UpdateBill)
	g.PATCH("/parties/:partyId/bills/:billId", h.SetBillStatus)
	g.DELETE("/parties/:partyId/bills/:billId", h.DeleteBill)
	return r, tn, inv
}

func do(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createParty(t *testing.T, r http.Handler, name string) database.Party {
	t.Helper()
	w := do(r, http.MethodPost, "/api/parties", gin.H{"partyName": name, "partyGST": "29abcde1234f1z5"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create party: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data database.Party `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Data
}

func addBill(t *testing.T, r http.Handler, partyID string, amount float64) database.Bill {
	t.Helper()
	w := do(r, http.MethodPost, "/api/parties/"+partyID+"/bills", gin.H{
		"invoiceNumber": "B-1", "amount": amount, "billDate": "2026-03-01", "dueDate": "2026-03-31",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add bill: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data database.Bill `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Data
}

func TestPartyCreateAndList(t *testing.T) {
	r, _, _ := setup(t)

	if w := do(r, http.MethodPost, "/api/parties", gin.H{"partyNumber": "1"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without name, got %d", w.Code)
	}

	p := createParty(t, r, "Gupta Traders")
	if p.PartyGST != "29ABCDE1234F1Z5" {
		t.Errorf("expected upper-cased GSTIN, got %q", p.PartyGST)
	}
	addBill(t, r, p.ID.String(), 500)

	w := do(r, http.MethodGet, "/api/parties", nil)
	var resp struct {
		Data []database.Party `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Data) != 1 || len(resp.Data[0].Bills) != 1 {
		t.Fatalf("expected one party with one bill, got %s", w.Body.String())
	}
	if resp.Data[0].Bills[0].Status != database.BillUnpaid {
		t.Errorf("new bill should be unpaid, got %q", resp.Data[0].Bills[0].Status)
	}
}

func TestBillValidation(t *testing.T) {
	r, _, _ := setup(t)
	p := createParty(t, r, "Gupta Traders")
	path := "/api/parties/" + p.ID.String() + "/bills"

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing amount", gin.H{"invoiceNumber": "B-1", "billDate": "2026-03-01", "dueDate": "2026-03-31"}},
		{"missing number", gin.H{"amount": 10, "billDate": "2026-03-01", "dueDate": "2026-03-31"}},
		{"bad date", gin.H{"invoiceNumber": "B-1", "amount": 10, "billDate": "soon", "dueDate": "2026-03-31"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(r, http.MethodPost, path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}

	w := do(r, http.MethodPost, "/api/parties/00000000-0000-0000-0000-000000000000/bills", gin.H{
		"invoiceNumber": "B-1", "amount": 10, "billDate": "2026-03-01", "dueDate": "2026-03-31",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown party, got %d", w.Code)
	}
}

func TestBillStatus(t *testing.T) {
	r, _, inv := setup(t)
	p := createParty(t, r, "Gupta Traders")
	b := addBill(t, r, p.ID.String(), 250)
	path := "/api/parties/" + p.ID.String() + "/bills/" + b.ID.String()

	status := func(w *httptest.ResponseRecorder) string {
		var resp struct {
			Data database.Bill `json:"data"`
		}
		json.Unmarshal(w.Body.Bytes(), &resp)
		return resp.Data.Status
	}

	if got := status(do(r, http.MethodPatch, path, gin.H{"status": "paid"})); got != database.BillPaid {
		t.Errorf("expected paid, got %q", got)
	}
	if got := status(do(r, http.MethodPatch, path, nil)); got != database.BillUnpaid {
		t.Errorf("expected toggle to unpaid, got %q", got)
	}
	if w := do(r, http.MethodPatch, path, gin.H{"status": "overdue"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %d", w.Code)
	}
	if w := do(r, http.MethodPut, path, gin.H{"status": "settled"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status on edit, got %d", w.Code)
	}

	w := do(r, http.MethodPut, path, gin.H{"amount": 300})
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	other := createParty(t, r, "Other")
	wrong := "/api/parties/" + other.ID.String() + "/bills/" + b.ID.String()
	if w := do(r, http.MethodDelete, wrong, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for bill under another party, got %d", w.Code)
	}

	if inv.calls < 4 {
		t.Errorf("expected bill mutations to invalidate, got %d calls", inv.calls)
	}
}

func TestDeletePartyRemovesBills(t *testing.T) {
	r, tn, _ := setup(t)
	p := createParty(t, r, "Gupta Traders")
	addBill(t, r, p.ID.String(), 100)
	addBill(t, r, p.ID.String(), 200)

	if w := do(r, http.MethodDelete, "/api/parties/"+p.ID.String(), nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}

	var bills int64
	tn.DB.Model(&database.Bill{}).Count(&bills)
	if bills != 0 {
		t.Errorf("expected bills removed with the party, %d left", bills)
	}

	if w := do(r, http.MethodDelete, "/api/parties/"+p.ID.String(), nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestPartyLookupErrors(t *testing.T) {
	r, tn, _ := setup(t)
	const missing = "/api/parties/4f1c2a52-3b1d-4c6e-9a57-0d7f2b1e8c90"
	bill := gin.H{"invoiceNumber": "B-1", "amount": 10, "billDate": "2026-03-01", "dueDate": "2026-03-31"}

	if w := do(r, http.MethodDelete, missing, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete of a missing party: expected 404, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, missing+"/bills", bill); w.Code != http.StatusNotFound {
		t.Errorf("bill for a missing party: expected 404, got %d", w.Code)
	}

	if err := tn.DB.Migrator().DropTable(&database.Bill{}, &database.Party{}); err != nil {
		t.Fatalf("drop tables: %v", err)
	}
	if w := do(r, http.MethodDelete, missing, nil); w.Code != http.StatusInternalServerError {
		t.Errorf("delete with broken storage: expected 500, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, missing+"/bills", bill); w.Code != http.StatusInternalServerError {
		t.Errorf("bill with broken storage: expected 500, got %d %s", w.Code, w.Body.String())
	}
}
