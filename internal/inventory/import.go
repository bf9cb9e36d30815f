package inventory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const maxImportSize = 5 << 20

type ImportHandler struct{}

func NewImportHandler() *ImportHandler {
	return &ImportHandler{}
}

type ImportResult struct {
	TotalRows    int      `json:"totalRows"`
	CreatedCount int      `json:"createdCount"`
	UpdatedCount int      `json:"updatedCount"`
	FailedCount  int      `json:"failedCount"`
	Errors       []string `json:"errors"`
}

// ImportRow is one product line of an import file. Line is the 1-based row
// number in the file, used in error messages.
type ImportRow struct {
	Line      int
	Name      string
	Code      string
	HSN       string
	Quantity  float64
	Price     float64
	CostPrice float64
	CGST      float64
	SGST      float64
	Discount  float64
	Supplier  string
}

// header aliases per field, matched case-insensitively
var columns = map[string][]string{
	"name":      {"name", "product name", "product"},
	"code":      {"code", "product code", "sku", "barcode"},
	"hsn":       {"hsn", "hsn code"},
	"quantity":  {"quantity", "qty", "stock"},
	"price":     {"price", "mrp", "selling price"},
	"costPrice": {"cost price", "costprice", "cost", "purchase price"},
	"cgst":      {"cgst", "cgst %", "cgst%"},
	"sgst":      {"sgst", "sgst %", "sgst%"},
	"discount":  {"discount", "discount %", "discount%"},
	"supplier":  {"supplier", "vendor"},
}

// ImportExcel handles Excel/CSV file upload for bulk product import.
// Rows are matched to existing products by code.
func (h *ImportHandler) ImportExcel(c *gin.Context) {
	t := middleware.Tenant(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	var rows []ImportRow
	fileName := strings.ToLower(header.Filename)

	switch {
	case strings.HasSuffix(fileName, ".xlsx"):
		rows, err = parseExcel(file)
	case strings.HasSuffix(fileName, ".csv"):
		rows, err = parseCSV(file)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format. Please upload .xlsx or .csv"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse file: %v", err)})
		return
	}

	result := Import(c.Request.Context(), t, rows)

	c.JSON(http.StatusOK, gin.H{
		"data":    result,
		"message": fmt.Sprintf("Import completed: %d created, %d updated, %d failed", result.CreatedCount, result.UpdatedCount, result.FailedCount),
	})
}

// Import creates or updates a product per row. A failing row is reported
// and does not stop the others.
func Import(ctx context.Context, t *tenant.Tenant, rows []ImportRow) ImportResult {
	result := ImportResult{
		TotalRows: len(rows),
		Errors:    []string{},
	}

	for _, row := range rows {
		if row.Name == "" || row.Code == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Name and code are required", row.Line))
			result.FailedCount++
			continue
		}

		cost := pricing.CostWithGST(row.CostPrice, row.CGST, row.SGST)

		var existing database.Product
		err := t.Products.Query(ctx).Where("code = ?", row.Code).Take(&existing).Error
		switch {
		case err == nil:
			updates := map[string]interface{}{
				"name":     row.Name,
				"quantity": row.Quantity,
			}
			if row.HSN != "" {
				updates["hsn"] = row.HSN
			}
			if row.Price > 0 {
				updates["price"] = row.Price
			}
			if row.CostPrice > 0 {
				updates["cost_price"] = cost
			}
			if row.CGST > 0 {
				updates["cgst"] = row.CGST
			}
			if row.SGST > 0 {
				updates["sgst"] = row.SGST
			}
			if row.Discount > 0 {
				updates["discount"] = row.Discount
			}
			if row.Supplier != "" {
				updates["supplier"] = row.Supplier
			}

			if err := t.DB.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Failed to update %s - %v", row.Line, row.Code, err))
				result.FailedCount++
				continue
			}
			result.UpdatedCount++

		case errors.Is(err, gorm.ErrRecordNotFound):
			p := database.Product{
				Name:      row.Name,
				Code:      row.Code,
				HSN:       row.HSN,
				Price:     row.Price,
				CostPrice: cost,
				CGST:      row.CGST,
				SGST:      row.SGST,
				Discount:  row.Discount,
				Quantity:  row.Quantity,
				Supplier:  row.Supplier,
			}
			if err := t.Products.Create(ctx, &p); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Failed to create %s - %v", row.Line, row.Code, err))
				result.FailedCount++
				continue
			}
			result.CreatedCount++

		default:
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", row.Line, err))
			result.FailedCount++
		}
	}

	return result
}

func parseExcel(file io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return parseRecords(rows)
}

func parseCSV(file io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

// parseRecords maps a header row plus data rows onto ImportRows. Blank rows
// are skipped.
func parseRecords(records [][]string) ([]ImportRow, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("file must have header row and at least one data row")
	}

	colMap := make(map[string]int)
	for i, cell := range records[0] {
		colMap[strings.ToLower(strings.TrimSpace(cell))] = i
	}

	index := make(map[string]int, len(columns))
	for field, aliases := range columns {
		for _, a := range aliases {
			if i, ok := colMap[a]; ok {
				index[field] = i
				break
			}
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("missing name column")
	}
	if _, ok := index["code"]; !ok {
		return nil, fmt.Errorf("missing code column")
	}

	text := func(row []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(row []string, field string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSuffix(text(row, field), "%"), 64)
		if err != nil {
			return 0
		}
		return v
	}

	var result []ImportRow
	for n, row := range records[1:] {
		r := ImportRow{
			Line:      n + 2,
			Name:      text(row, "name"),
			Code:      text(row, "code"),
			HSN:       text(row, "hsn"),
			Quantity:  number(row, "quantity"),
			Price:     number(row, "price"),
			CostPrice: number(row, "costPrice"),
			CGST:      number(row, "cgst"),
			SGST:      number(row, "sgst"),
			Discount:  number(row, "discount"),
			Supplier:  text(row, "supplier"),
		}
		if r.Name == "" && r.Code == "" {
			continue
		}
		result = append(result, r)
	}

	return result, nil
}

// DownloadTemplate generates a sample Excel template for import
func (h *ImportHandler) DownloadTemplate(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"Name", "Code", "HSN", "Quantity", "Price", "Cost Price", "CGST", "SGST", "Discount", "Supplier"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, header)
	}

	sampleData := [][]interface{}{
		{"Bath Soap 100g", "SOAP-100", "3401", 50, 45, 30, 9, 9, 0, "Hindustan Traders"},
		{"Basmati Rice 1kg", "RICE-1KG", "1006", 20, 120, 95, 2.5, 2.5, 5, "Annapurna Foods"},
	}

	for rowIdx, row := range sampleData {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue("Sheet1", cell, value)
		}
	}

	f.SetColWidth("Sheet1", "A", "A", 22)
	f.SetColWidth("Sheet1", "B", "C", 12)
	f.SetColWidth("Sheet1", "D", "I", 10)
	f.SetColWidth("Sheet1", "J", "J", 20)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=product_import_template.xlsx")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate template"})
		return
	}
}
