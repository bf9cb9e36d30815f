package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/internal/pdf"
	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/metrics"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRender marks a failed PDF render. The invoice it belongs to is saved.
var ErrRender = errors.New("invoice pdf render failed")

const maxNumberAttempts = 3

// Renderer produces the PDF of an invoice.
type Renderer interface {
	Render(ctx context.Context, key string, v pdf.View) (string, error)
	Remove(key, number string) error
}

// Invalidator is told when a tenant's sales data changes.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantKey string)
}

type ItemRequest struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Qty           float64  `json:"qty"`
	Price         float64  `json:"price"`
	CostPrice     *float64 `json:"costPrice"`
	PurchasePrice *float64 `json:"purchasePrice"`
	Discount      float64  `json:"discount"`
	CGST          float64  `json:"cgst"`
	SGST          float64  `json:"sgst"`
	ManualAmount  *float64 `json:"manualAmount"`
}

type CreateRequest struct {
	InvoiceNumber  string        `json:"invoiceNumber"`
	InvoiceDate    string        `json:"invoiceDate"`
	DueDate        string        `json:"dueDate"`
	PaymentTerms   string        `json:"paymentTerms"`
	CustomerName   string        `json:"customerName"`
	CustomerPhone  string        `json:"customerPhone"`
	CompanyName    string        `json:"companyName"`
	CompanyAddress string        `json:"companyAddress"`
	CompanyPhone   string        `json:"companyPhone"`
	CompanyLogo    string        `json:"companyLogo"`
	Items          []ItemRequest `json:"items"`
}

// Result is a saved invoice and, when rendering succeeded, its PDF link.
type Result struct {
	Invoice *database.Invoice
	PDFURL  string
}

// Service runs the invoice pipeline: validate, price, persist, adjust stock,
// render. A stock failure removes the saved invoice again; a render failure
// leaves it in place.
type Service struct {
	numberer    Numberer
	renderer    Renderer
	invalidator Invalidator
	loc         *time.Location
	now         func() time.Time
}

func NewService(numberer Numberer, renderer Renderer, invalidator Invalidator, loc *time.Location) *Service {
	return &Service{
		numberer:    numberer,
		renderer:    renderer,
		invalidator: invalidator,
		loc:         loc,
		now:         time.Now,
	}
}

// NextNumber previews the number the next invoice would get.
func (s *Service) NextNumber(ctx context.Context, t *tenant.Tenant) (string, error) {
	n, err := s.numberer.Next(ctx, t)
	return n, apperror.Wrap("invoice.NextNumber", err)
}

// List returns the tenant's invoices, newest first.
func (s *Service) List(ctx context.Context, t *tenant.Tenant) ([]database.Invoice, error) {
	invoices, err := t.Invoices.List(ctx, "created_at DESC")
	return invoices, apperror.Wrap("invoice.List", err)
}

func (s *Service) Get(ctx context.Context, t *tenant.Tenant, id string) (*database.Invoice, error) {
	inv, err := t.Invoices.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("invoice.Get", "Invoice")
	}
	return inv, apperror.Wrap("invoice.Get", err)
}

// Create saves a new invoice, sells its stock and renders its PDF under
// origin. On ErrRender the returned Result still carries the saved invoice.
func (s *Service) Create(ctx context.Context, t *tenant.Tenant, req CreateRequest, origin string) (*Result, error) {
	const op = "invoice.Create"
	log := logger.WithTenant("invoice", t.Key)

	if err := validate(req); err != nil {
		metrics.InvoicePipelineFailures.WithLabelValues("validate").Inc()
		return nil, err
	}

	inv, err := s.build(ctx, t, req)
	if err != nil {
		metrics.InvoicePipelineFailures.WithLabelValues("price").Inc()
		return nil, apperror.Wrap(op, err)
	}

	if err := s.persist(ctx, t, inv, strings.TrimSpace(req.InvoiceNumber) != ""); err != nil {
		metrics.InvoicePipelineFailures.WithLabelValues("persist").Inc()
		return nil, err
	}

	if err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return sellStock(tx, inv.Items)
	}); err != nil {
		metrics.InvoicePipelineFailures.WithLabelValues("stock").Inc()
		if derr := t.DB.WithContext(ctx).Delete(inv).Error; derr != nil {
			log.Error().Err(derr).Str("invoice", inv.InvoiceNumber).Msg("failed to remove invoice after stock failure")
		}
		return nil, apperror.Wrap(op, fmt.Errorf("adjust stock: %w", err))
	}

	metrics.InvoicesCreated.Inc()
	s.invalidate(ctx, t)

	res := &Result{Invoice: inv}
	if err := s.render(ctx, t, inv); err != nil {
		metrics.InvoicePipelineFailures.WithLabelValues("render").Inc()
		return res, err
	}
	res.PDFURL = pdf.URL(origin, t.Key, inv.InvoiceNumber)
	return res, nil
}

// Render re-renders the PDF of a saved invoice.
func (s *Service) Render(ctx context.Context, t *tenant.Tenant, id, origin string) (string, error) {
	inv, err := s.Get(ctx, t, id)
	if err != nil {
		return "", err
	}
	if err := s.render(ctx, t, inv); err != nil {
		return "", err
	}
	return pdf.URL(origin, t.Key, inv.InvoiceNumber), nil
}

// RenderByNumber re-renders the PDF of the invoice with the given number.
func (s *Service) RenderByNumber(ctx context.Context, t *tenant.Tenant, number string) (string, error) {
	var inv database.Invoice
	err := t.Invoices.Query(ctx).Where("invoice_number = ?", number).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperror.NotFound("invoice.RenderByNumber", "Invoice")
	}
	if err != nil {
		return "", apperror.Wrap("invoice.RenderByNumber", err)
	}
	if err := s.render(ctx, t, &inv); err != nil {
		return "", err
	}
	return inv.PDFPath, nil
}

// Delete restores the stock of an invoice's items and removes it.
func (s *Service) Delete(ctx context.Context, t *tenant.Tenant, id string) (*database.Invoice, error) {
	const op = "invoice.Delete"

	inv, err := t.Invoices.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(op, "Invoice")
	}
	if err != nil {
		return nil, apperror.Wrap(op, err)
	}

	if err := t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := restoreStock(tx, inv.Items); err != nil {
			return err
		}
		return tx.Delete(inv).Error
	}); err != nil {
		return nil, apperror.Wrap(op, err)
	}

	if err := s.renderer.Remove(t.Key, inv.InvoiceNumber); err != nil {
		log := logger.WithTenant("invoice", t.Key)
		log.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("failed to remove invoice pdf")
	}
	s.invalidate(ctx, t)
	return inv, nil
}

func validate(req CreateRequest) error {
	const op = "invoice.validate"
	if strings.TrimSpace(req.CustomerName) == "" {
		return apperror.Validation(op, "Customer name is required")
	}
	if len(req.Items) == 0 {
		return apperror.Validation(op, "At least one item is required")
	}
	return nil
}

// build prices the request and snapshots the issuer profile.
func (s *Service) build(ctx context.Context, t *tenant.Tenant, req CreateRequest) (*database.Invoice, error) {
	items := make(datatypes.JSONSlice[database.InvoiceItem], 0, len(req.Items))
	var totals pricing.Totals

	for _, in := range req.Items {
		code := strings.TrimSpace(in.Code)
		name := in.Name
		cost := in.CostPrice
		if cost == nil {
			cost = in.PurchasePrice
		}

		if code != "" && (cost == nil || name == "") {
			var p database.Product
			err := t.Products.Query(ctx).Where("code = ?", code).Take(&p).Error
			switch {
			case err == nil:
				if cost == nil {
					cost = &p.CostPrice
				}
				if name == "" {
					name = p.Name
				}
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return nil, err
			}
		}

		var costPrice float64
		if cost != nil {
			costPrice = *cost
		}

		r := pricing.Compute(pricing.Line{
			Qty:          in.Qty,
			UnitPrice:    in.Price,
			DiscountPct:  in.Discount,
			CGSTPct:      in.CGST,
			SGSTPct:      in.SGST,
			CostPrice:    costPrice,
			ManualAmount: in.ManualAmount,
		})
		totals.Add(r)

		items = append(items, database.InvoiceItem{
			Code:        code,
			Name:        name,
			Qty:         in.Qty,
			Price:       in.Price,
			CostPrice:   costPrice,
			Discount:    pricing.Round2(r.DiscountPct),
			CGST:        in.CGST,
			SGST:        in.SGST,
			Amount:      pricing.Round2(r.LineTotal),
			Profit:      pricing.Round2(r.Profit),
			Gross:       pricing.Round2(r.Gross),
			DiscountAmt: pricing.Round2(r.DiscountAmount),
			BaseValue:   pricing.Round2(r.BaseValue),
			CGSTAmt:     pricing.Round2(r.CGSTAmount),
			SGSTAmt:     pricing.Round2(r.SGSTAmount),
			ItemTotal:   pricing.Round2(r.LineTotal),
		})
	}

	invoiceDate, ok := calendar.ParseDate(req.InvoiceDate, s.loc)
	if !ok {
		invoiceDate = s.now().UTC()
	}

	inv := &database.Invoice{
		InvoiceNumber:  strings.TrimSpace(req.InvoiceNumber),
		InvoiceDate:    invoiceDate,
		PaymentTerms:   req.PaymentTerms,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
		CompanyPhone:   req.CompanyPhone,
		CompanyLogo:    req.CompanyLogo,
		Items:          items,
		Subtotal:       pricing.Round2(totals.Subtotal),
		TotalDiscount:  pricing.Round2(totals.TotalDiscount),
		TotalTax:       pricing.Round2(totals.TotalTax),
		TotalAmount:    pricing.Round2(totals.TotalAmount),
		TotalProfit:    pricing.Round2(totals.TotalProfit),
	}
	if due, ok := calendar.ParseDate(req.DueDate, s.loc); ok {
		inv.DueDate = &due
	}

	if err := s.snapshotProfile(ctx, t, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// snapshotProfile fills issuer fields the request left empty.
func (s *Service) snapshotProfile(ctx context.Context, t *tenant.Tenant, inv *database.Invoice) error {
	var p database.Profile
	err := t.Profiles.Query(ctx).Order("created_at ASC").Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if inv.CompanyName == "" {
		inv.CompanyName = p.CompanyName
	}
	if inv.CompanyAddress == "" {
		inv.CompanyAddress = p.CompanyAddress
	}
	if inv.CompanyPhone == "" {
		inv.CompanyPhone = p.CompanyPhone
	}
	if inv.CompanyLogo == "" {
		inv.CompanyLogo = p.CompanyLogo
	}
	return nil
}

// persist inserts the invoice. Server-assigned numbers are regenerated when
// another request took the same number first.
func (s *Service) persist(ctx context.Context, t *tenant.Tenant, inv *database.Invoice, clientNumber bool) error {
	const op = "invoice.persist"

	for attempt := 1; ; attempt++ {
		if !clientNumber {
			n, err := s.numberer.Next(ctx, t)
			if err != nil {
				return apperror.Wrap(op, err)
			}
			inv.InvoiceNumber = n
		}

		err := t.Invoices.Create(ctx, inv)
		switch {
		case err == nil:
			return nil
		case !apperror.IsDuplicate(err):
			return apperror.Wrap(op, err)
		case clientNumber:
			return apperror.Conflict(op, "Invoice number "+inv.InvoiceNumber+" already exists")
		case attempt == maxNumberAttempts:
			return apperror.Wrap(op, err)
		}
	}
}

func (s *Service) render(ctx context.Context, t *tenant.Tenant, inv *database.Invoice) error {
	path, err := s.renderer.Render(ctx, t.Key, pdf.NewView(inv, s.loc))
	if err != nil {
		return &apperror.Error{Op: "invoice.render", Msg: "Failed to generate PDF", Err: fmt.Errorf("%w: %v", ErrRender, err)}
	}
	inv.PDFPath = path
	if err := t.Invoices.Query(ctx).Where("id = ?", inv.ID).Update("pdf_path", path).Error; err != nil {
		log := logger.WithTenant("invoice", t.Key)
		log.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("failed to record pdf path")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, t *tenant.Tenant) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, t.Key)
	}
}

// sellStock takes each sold quantity off its product, never below zero, and
// adds it to the product's sold counter.
func sellStock(tx *gorm.DB, items []database.InvoiceItem) error {
	for _, it := range items {
		if it.Code == "" || it.Qty <= 0 {
			continue
		}
		if err := tx.Model(&database.Product{}).
			Where("code = ?", it.Code).
			Updates(map[string]interface{}{
				"quantity": gorm.Expr("CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", it.Qty, it.Qty),
				"sold":     gorm.Expr("sold + ?", it.Qty),
			}).Error; err != nil {
			return fmt.Errorf("product %s: %w", it.Code, err)
		}
	}
	return nil
}

// restoreStock puts sold quantities back on their products.
func restoreStock(tx *gorm.DB, items []database.InvoiceItem) error {
	for _, it := range items {
		if it.Code == "" || it.Qty <= 0 {
			continue
		}
		if err := tx.Model(&database.Product{}).
			Where("code = ?", it.Code).
			Update("quantity", gorm.Expr("quantity + ?", it.Qty)).Error; err != nil {
			return fmt.Errorf("product %s: %w", it.Code, err)
		}
	}
	return nil
}
