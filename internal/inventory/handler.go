package inventory

import (
	"errors"
	"net/http"

	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handler struct {
	lowStock float64
	logger   *activitylog.Logger
}

// NewHandler reports products at or below lowStock units as low.
func NewHandler(lowStock int) *Handler {
	return &Handler{
		lowStock: float64(lowStock),
		logger:   activitylog.NewLogger(),
	}
}

type InventoryItem struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Code        string    `json:"code"`
	Quantity    float64   `json:"quantity"`
	Sold        float64   `json:"sold"`
	Price       float64   `json:"price"`
	CostPrice   float64   `json:"costPrice"`
	StockValue  float64   `json:"stockValue"`
	Status      string    `json:"status"` // ok, low, out
}

type InventorySummary struct {
	TotalProducts   int     `json:"totalProducts"`
	TotalStockValue float64 `json:"totalStockValue"`
	LowStockCount   int     `json:"lowStockCount"`
	OutOfStockCount int     `json:"outOfStockCount"`
}

func (h *Handler) status(qty float64) string {
	switch {
	case qty <= 0:
		return "out"
	case qty <= h.lowStock:
		return "low"
	default:
		return "ok"
	}
}

// GetInventory returns inventory status for all products
func (h *Handler) GetInventory(c *gin.Context) {
	t := middleware.Tenant(c)
	filter := c.Query("filter") // all, low, out

	products, err := t.Products.List(c.Request.Context(), "name ASC")
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch inventory")
		return
	}

	items := make([]InventoryItem, 0, len(products))
	for _, p := range products {
		status := h.status(p.Quantity)
		if filter == "low" && status != "low" {
			continue
		}
		if filter == "out" && status != "out" {
			continue
		}

		items = append(items, InventoryItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Code:        p.Code,
			Quantity:    p.Quantity,
			Sold:        p.Sold,
			Price:       p.Price,
			CostPrice:   p.CostPrice,
			StockValue:  p.Quantity * p.CostPrice,
			Status:      status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetSummary returns inventory summary stats
func (h *Handler) GetSummary(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var summary InventorySummary

	var totalProducts int64
	if err := t.Products.Query(ctx).Count(&totalProducts).Error; err != nil {
		apperror.Respond(c, err, "Failed to fetch inventory summary")
		return
	}
	summary.TotalProducts = int(totalProducts)

	var stockValue struct {
		Total float64
	}
	t.Products.Query(ctx).
		Select("COALESCE(SUM(quantity * cost_price), 0) as total").
		Scan(&stockValue)
	summary.TotalStockValue = stockValue.Total

	var lowStock int64
	t.Products.Query(ctx).
		Where("quantity > 0 AND quantity <= ?", h.lowStock).
		Count(&lowStock)
	summary.LowStockCount = int(lowStock)

	var outOfStock int64
	t.Products.Query(ctx).
		Where("quantity <= 0").
		Count(&outOfStock)
	summary.OutOfStockCount = int(outOfStock)

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// UpdateStockRequest adjusts product stock by a signed amount
type UpdateStockRequest struct {
	Adjustment *float64 `json:"adjustment" binding:"required"` // can be negative
	Reason     string   `json:"reason"`
}

// UpdateStock adds the adjustment to a product's quantity, never going
// below zero
func (h *Handler) UpdateStock(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := t.Products.Get(ctx, c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	before := product.Quantity
	adj := *req.Adjustment
	if err := t.Products.Query(ctx).
		Where("id = ?", product.ID).
		Update("quantity", gorm.Expr("CASE WHEN quantity + ? > 0 THEN quantity + ? ELSE 0 END", adj, adj)).Error; err != nil {
		apperror.Respond(c, err, "Failed to update stock")
		return
	}

	product, err = t.Products.Get(ctx, product.ID.String())
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	h.logger.LogUpdate(c, "product", product.ID,
		map[string]interface{}{"quantity": before},
		map[string]interface{}{"quantity": product.Quantity, "reason": req.Reason},
	)

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// GetAlerts returns products at or below the low stock threshold
func (h *Handler) GetAlerts(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var lowStock []database.Product
	if err := t.Products.Query(ctx).
		Where("quantity > 0 AND quantity <= ?", h.lowStock).
		Order("quantity ASC").
		Find(&lowStock).Error; err != nil {
		apperror.Respond(c, err, "Failed to fetch stock alerts")
		return
	}

	var outOfStock []database.Product
	if err := t.Products.Query(ctx).
		Where("quantity <= 0").
		Order("name ASC").
		Find(&outOfStock).Error; err != nil {
		apperror.Respond(c, err, "Failed to fetch stock alerts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"lowStock":   lowStock,
			"outOfStock": outOfStock,
			"threshold":  h.lowStock,
		},
	})
}
