package invoice

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/email"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Mailer sends invoice links to customers.
type Mailer interface {
	SendInvoice(ctx context.Context, m email.InvoiceMail) error
}

type Handler struct {
	service *Service
	mailer  Mailer
	logger  *activitylog.Logger
}

func NewHandler(service *Service, mailer Mailer) *Handler {
	return &Handler{
		service: service,
		mailer:  mailer,
		logger:  activitylog.NewLogger(),
	}
}

// List returns all invoices, newest first
func (h *Handler) List(c *gin.Context) {
	invoices, err := h.service.List(c.Request.Context(), middleware.Tenant(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch invoices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

// NewNumber previews the next invoice number without reserving it
func (h *Handler) NewNumber(c *gin.Context) {
	n, err := h.service.NextNumber(c.Request.Context(), middleware.Tenant(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to generate invoice number")
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoiceNumber": n})
}

// Create saves an invoice, sells its stock and renders the PDF
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), middleware.Tenant(c), req, requestOrigin(c))
	if errors.Is(err, ErrRender) && res != nil {
		h.logger.LogCreate(c, "invoice", res.Invoice.ID, map[string]interface{}{
			"invoiceNumber": res.Invoice.InvoiceNumber,
			"totalAmount":   res.Invoice.TotalAmount,
		})
		log := logger.WithTenant("invoice", c.GetString("tenant_key"))
		log.Error().Err(err).Str("invoice", res.Invoice.InvoiceNumber).Msg("invoice saved without pdf")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate PDF",
			"invoice": res.Invoice,
		})
		return
	}
	if err != nil {
		apperror.Respond(c, err, "Failed to create invoice")
		return
	}

	h.logger.LogCreate(c, "invoice", res.Invoice.ID, map[string]interface{}{
		"invoiceNumber": res.Invoice.InvoiceNumber,
		"totalAmount":   res.Invoice.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Invoice created",
		"pdfUrl":  res.PDFURL,
		"invoice": res.Invoice,
	})
}

// Get returns a single invoice
func (h *Handler) Get(c *gin.Context) {
	inv, err := h.service.Get(c.Request.Context(), middleware.Tenant(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch invoice")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

// Delete removes an invoice and puts its stock back
func (h *Handler) Delete(c *gin.Context) {
	inv, err := h.service.Delete(c.Request.Context(), middleware.Tenant(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to delete invoice")
		return
	}

	h.logger.LogDelete(c, "invoice", inv.ID, map[string]interface{}{
		"invoiceNumber": inv.InvoiceNumber,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// RenderPDF renders the PDF of a saved invoice again
func (h *Handler) RenderPDF(c *gin.Context) {
	url, err := h.service.Render(c.Request.Context(), middleware.Tenant(c), c.Param("id"), requestOrigin(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to generate PDF")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pdfUrl": url})
}

type sendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Send mails the customer a link to the invoice PDF
func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	t := middleware.Tenant(c)

	inv, err := h.service.Get(ctx, t, c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch invoice")
		return
	}

	url, err := h.service.Render(ctx, t, inv.ID.String(), requestOrigin(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to generate PDF")
		return
	}

	err = h.mailer.SendInvoice(ctx, email.InvoiceMail{
		To:            req.Email,
		CustomerName:  inv.CustomerName,
		CompanyName:   inv.CompanyName,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   decimal.NewFromFloat(inv.TotalAmount).StringFixed(2),
		PDFURL:        url,
	})
	if errors.Is(err, email.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Email is not configured"})
		return
	}
	if err != nil {
		apperror.Respond(c, err, "Failed to send invoice")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice sent", "pdfUrl": url})
}

// requestOrigin is the Origin header, or the scheme and host the request
// reached us on.
func requestOrigin(c *gin.Context) string {
	if o := strings.TrimSpace(c.GetHeader("Origin")); o != "" {
		return o
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}
