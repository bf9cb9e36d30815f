package reports

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sales"

type Handler struct {
	loc *time.Location
}

func NewHandler(loc *time.Location) *Handler {
	return &Handler{loc: loc}
}

type SalesReportRequest struct {
	From string `form:"from"` // Format: 2024-01-01
	To   string `form:"to"`   // Format: 2024-01-31, inclusive
}

// DailySales groups the invoices of one day
type DailySales struct {
	Date        string             `json:"date"`
	TotalAmount float64            `json:"totalAmount"`
	TotalProfit float64            `json:"totalProfit"`
	Invoices    []database.Invoice `json:"invoices"`
}

// GroupByDay buckets invoices by their invoice date in loc. Invoices must be
// ordered newest first; days come out in the same order.
func GroupByDay(invoices []database.Invoice, loc *time.Location) []DailySales {
	days := []DailySales{}
	for _, inv := range invoices {
		key := calendar.DayKey(inv.InvoiceDate, loc)
		if len(days) == 0 || days[len(days)-1].Date != key {
			days = append(days, DailySales{Date: key, Invoices: []database.Invoice{}})
		}
		d := &days[len(days)-1]
		d.TotalAmount += inv.TotalAmount
		d.TotalProfit += inv.TotalProfit
		d.Invoices = append(d.Invoices, inv)
	}
	for i := range days {
		days[i].TotalAmount = pricing.Round2(days[i].TotalAmount)
		days[i].TotalProfit = pricing.Round2(days[i].TotalProfit)
	}
	return days
}

// GetSalesByDate returns invoices grouped by day, newest day first
func (h *Handler) GetSalesByDate(c *gin.Context) {
	invoices, err := middleware.Tenant(c).Invoices.List(c.Request.Context(), "invoice_date DESC, created_at DESC")
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch sales by date")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": GroupByDay(invoices, h.loc)})
}

// dateRange reads from/to as whole local days. Missing bounds are open.
func (h *Handler) dateRange(req SalesReportRequest) (from, to *time.Time, err error) {
	if req.From != "" {
		d, ok := calendar.ParseDate(req.From, h.loc)
		if !ok {
			return nil, nil, apperror.Validation("reports.dateRange", "Invalid from date")
		}
		start := calendar.StartOfDay(d, h.loc).UTC()
		from = &start
	}
	if req.To != "" {
		d, ok := calendar.ParseDate(req.To, h.loc)
		if !ok {
			return nil, nil, apperror.Validation("reports.dateRange", "Invalid to date")
		}
		end := calendar.StartOfDay(d, h.loc).AddDate(0, 0, 1).UTC()
		to = &end
	}
	return from, to, nil
}

// ExportSales writes one spreadsheet row per invoice line in the range
func (h *Handler) ExportSales(c *gin.Context) {
	var req SalesReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, to, err := h.dateRange(req)
	if err != nil {
		apperror.Respond(c, err, "Failed to export sales")
		return
	}

	q := middleware.Tenant(c).Invoices.Query(c.Request.Context())
	if from != nil {
		q = q.Where("invoice_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("invoice_date < ?", *to)
	}
	var invoices []database.Invoice
	if err := q.Order("invoice_date ASC").Find(&invoices).Error; err != nil {
		apperror.Respond(c, err, "Failed to export sales")
		return
	}

	f, err := h.workbook(invoices)
	if err != nil {
		apperror.Respond(c, err, "Failed to export sales")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=sales.xlsx")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export sales"})
		return
	}
}

func (h *Handler) workbook(invoices []database.Invoice) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		f.Close()
		return nil, err
	}

	headers := []interface{}{"Date", "Invoice", "Customer", "Code", "Item", "Qty", "Price", "Discount %", "CGST %", "SGST %", "Amount", "Profit"}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		f.Close()
		return nil, err
	}

	row := 2
	for _, inv := range invoices {
		date := inv.InvoiceDate.In(h.loc).Format(calendar.DayLayout)
		for _, it := range inv.Items {
			values := []interface{}{
				date, inv.InvoiceNumber, inv.CustomerName, it.Code, it.Name,
				it.Qty, it.Price, it.Discount, it.CGST, it.SGST, it.Amount, it.Profit,
			}
			if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
	}

	f.SetColWidth(exportSheet, "A", "B", 12)
	f.SetColWidth(exportSheet, "C", "C", 20)
	f.SetColWidth(exportSheet, "E", "E", 24)
	return f, nil
}
