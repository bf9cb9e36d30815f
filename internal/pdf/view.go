package pdf

import (
	"html/template"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/shopspring/decimal"
)

// Row is one printed invoice line.
type Row struct {
	Index    int
	Code     string
	Name     string
	Qty      string
	Price    string
	Discount string
	CGST     string
	SGST     string
	Amount   string
}

// View is everything the invoice template prints, already formatted.
type View struct {
	InvoiceNumber string
	InvoiceDate   string
	DueDate       string
	PaymentTerms  string

	CustomerName  string
	CustomerPhone string

	CompanyName    string
	CompanyAddress string
	CompanyPhone   string
	CompanyLogo    template.URL

	Rows []Row

	Subtotal      string
	TotalDiscount string
	TotalTax      string
	TotalAmount   string
}

// NewView formats an invoice for printing. Dates are shown in loc.
func NewView(inv *database.Invoice, loc *time.Location) View {
	v := View{
		InvoiceNumber:  inv.InvoiceNumber,
		InvoiceDate:    inv.InvoiceDate.In(loc).Format("02/01/2006"),
		PaymentTerms:   inv.PaymentTerms,
		CustomerName:   inv.CustomerName,
		CustomerPhone:  inv.CustomerPhone,
		CompanyName:    inv.CompanyName,
		CompanyAddress: inv.CompanyAddress,
		CompanyPhone:   inv.CompanyPhone,
		CompanyLogo:    logoURL(inv.CompanyLogo),
		Subtotal:       money(inv.Subtotal),
		TotalDiscount:  money(inv.TotalDiscount),
		TotalTax:       money(inv.TotalTax),
		TotalAmount:    money(inv.TotalAmount),
	}
	if inv.DueDate != nil {
		v.DueDate = inv.DueDate.In(loc).Format("02/01/2006")
	}

	for i, item := range inv.Items {
		v.Rows = append(v.Rows, Row{
			Index:    i + 1,
			Code:     item.Code,
			Name:     item.Name,
			Qty:      decimal.NewFromFloat(item.Qty).String(),
			Price:    money(item.Price),
			Discount: decimal.NewFromFloat(item.Discount).Round(2).String() + "%",
			CGST:     decimal.NewFromFloat(item.CGST).Round(2).String() + "%",
			SGST:     decimal.NewFromFloat(item.SGST).Round(2).String() + "%",
			Amount:   money(item.Amount),
		})
	}
	return v
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// logoURL accepts uploaded data URIs and http(s) links only.
func logoURL(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "http://"):
		return template.URL(s)
	}
	return ""
}
