package purchase

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/internal/calendar"
	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Handler struct {
	loc    *time.Location
	logger *activitylog.Logger
}

func NewHandler(loc *time.Location) *Handler {
	return &Handler{loc: loc, logger: activitylog.NewLogger()}
}

type PurchaseItemRequest struct {
	Code     string  `json:"code" binding:"required"`
	Name     string  `json:"name"`
	Qty      float64 `json:"qty" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"gte=0"`
	Discount float64 `json:"discount" binding:"gte=0,lte=100"`
	CGST     float64 `json:"cgst" binding:"gte=0"`
	SGST     float64 `json:"sgst" binding:"gte=0"`
}

type CreatePurchaseRequest struct {
	Supplier     string                `json:"supplier"`
	PurchaseDate string                `json:"purchaseDate"`
	Items        []PurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

// List returns all purchases for the tenant, newest first
func (h *Handler) List(c *gin.Context) {
	purchases, err := middleware.Tenant(c).Purchases.List(c.Request.Context(), "created_at DESC")
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch purchases")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": purchases})
}

// Create records a supplier purchase and adds the bought quantities to stock
func (h *Handler) Create(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchaseDate := time.Now().UTC()
	if req.PurchaseDate != "" {
		d, ok := calendar.ParseDate(req.PurchaseDate, h.loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid purchase date"})
			return
		}
		purchaseDate = d
	}

	t := middleware.Tenant(c)

	items := make(datatypes.JSONSlice[database.PurchaseItem], 0, len(req.Items))
	var totals pricing.Totals
	for _, in := range req.Items {
		r := pricing.Compute(pricing.Line{
			Qty:         in.Qty,
			UnitPrice:   in.Price,
			DiscountPct: in.Discount,
			CGSTPct:     in.CGST,
			SGSTPct:     in.SGST,
		})
		totals.Add(r)
		items = append(items, database.PurchaseItem{
			Code:     strings.TrimSpace(in.Code),
			Name:     in.Name,
			Qty:      in.Qty,
			Price:    in.Price,
			Discount: in.Discount,
			CGST:     in.CGST,
			SGST:     in.SGST,
			Amount:   pricing.Round2(r.LineTotal),
		})
	}

	purchase := database.Purchase{
		Supplier:      strings.TrimSpace(req.Supplier),
		Items:         items,
		Subtotal:      pricing.Round2(totals.Subtotal),
		TotalDiscount: pricing.Round2(totals.TotalDiscount),
		TotalTax:      pricing.Round2(totals.TotalTax),
		TotalAmount:   pricing.Round2(totals.TotalAmount),
		PurchaseDate:  purchaseDate,
	}

	err := t.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			res := tx.Model(&database.Product{}).
				Where("code = ?", it.Code).
				Update("quantity", gorm.Expr("quantity + ?", it.Qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperror.Validation("purchase.Create", fmt.Sprintf("Product %s not found", it.Code))
			}
		}
		return tx.Create(&purchase).Error
	})
	if err != nil {
		apperror.Respond(c, apperror.Wrap("purchase.Create", err), "Failed to record purchase")
		return
	}

	h.logger.LogCreate(c, "purchase", purchase.ID, map[string]interface{}{
		"supplier":    purchase.Supplier,
		"items":       len(purchase.Items),
		"totalAmount": purchase.TotalAmount,
	})

	c.JSON(http.StatusCreated, gin.H{"data": purchase})
}
