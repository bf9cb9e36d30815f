package product

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Musavvir24/my-software/internal/pricing"
	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const searchLimit = 20

type Handler struct {
	logger *activitylog.Logger
}

func NewHandler() *Handler {
	return &Handler{
		logger: activitylog.NewLogger(),
	}
}

// CreateProductRequest carries a product. CostPrice is entered without GST
// and stored with it.
type CreateProductRequest struct {
	Name      string  `json:"name" binding:"required"`
	Code      string  `json:"code" binding:"required"`
	HSN       string  `json:"hsn"`
	Price     float64 `json:"price" binding:"gte=0"`
	CostPrice float64 `json:"costPrice" binding:"gte=0"`
	CGST      float64 `json:"cgst"`
	SGST      float64 `json:"sgst"`
	Discount  float64 `json:"discount"`
	Quantity  float64 `json:"quantity" binding:"gte=0"`
	Supplier  string  `json:"supplier"`
	ImageURL  string  `json:"imageUrl"`
}

func (r CreateProductRequest) apply(p *database.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Code = strings.TrimSpace(r.Code)
	p.HSN = r.HSN
	p.Price = r.Price
	p.CostPrice = pricing.Round2(pricing.CostWithGST(r.CostPrice, r.CGST, r.SGST))
	p.CGST = r.CGST
	p.SGST = r.SGST
	p.Discount = r.Discount
	p.Quantity = r.Quantity
	p.Supplier = r.Supplier
	p.ImageURL = r.ImageURL
}

func summary(p *database.Product) map[string]interface{} {
	return map[string]interface{}{
		"name":      p.Name,
		"code":      p.Code,
		"price":     p.Price,
		"costPrice": p.CostPrice,
		"quantity":  p.Quantity,
	}
}

// List returns all products, newest first
func (h *Handler) List(c *gin.Context) {
	products, err := middleware.Tenant(c).Products.List(c.Request.Context(), "created_at DESC")
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

// Create adds a new product
func (h *Handler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var product database.Product
	req.apply(&product)

	if err := middleware.Tenant(c).Products.Create(c.Request.Context(), &product); err != nil {
		if apperror.IsDuplicate(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Product code already exists"})
			return
		}
		apperror.Respond(c, err, "Failed to create product")
		return
	}

	h.logger.LogCreate(c, "product", product.ID, summary(&product))

	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// find loads a product by id, reporting a missing one as not found.
func find(ctx context.Context, t *tenant.Tenant, id string) (*database.Product, error) {
	product, err := t.Products.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("product.find", "Product")
	}
	return product, apperror.Wrap("product.find", err)
}

// Get returns a single product
func (h *Handler) Get(c *gin.Context) {
	product, err := find(c.Request.Context(), middleware.Tenant(c), c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// GetByCode looks a product up by exact code or name, ignoring case
func (h *Handler) GetByCode(c *gin.Context) {
	key := strings.ToLower(strings.TrimSpace(c.Param("code")))

	var product database.Product
	err := middleware.Tenant(c).Products.Query(c.Request.Context()).
		Where("LOWER(code) = ? OR LOWER(name) = ?", key, key).
		Order("created_at DESC").
		Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// Search matches part of a product's code or name, ignoring case
func (h *Handler) Search(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Param("query")))
	pattern := "%" + escapeLike(q) + "%"

	var products []database.Product
	if err := middleware.Tenant(c).Products.Query(c.Request.Context()).
		Where("LOWER(code) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("name ASC").
		Limit(searchLimit).
		Find(&products).Error; err != nil {
		apperror.Respond(c, err, "Search failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update modifies a product
func (h *Handler) Update(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	product, err := find(ctx, t, c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldValues := summary(product)
	req.apply(product)

	if err := t.Products.Save(ctx, product); err != nil {
		if apperror.IsDuplicate(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Product code already exists"})
			return
		}
		apperror.Respond(c, err, "Failed to update product")
		return
	}

	h.logger.LogUpdate(c, "product", product.ID, oldValues, summary(product))

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// Delete removes a product
func (h *Handler) Delete(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	product, err := find(ctx, t, c.Param("id"))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch product")
		return
	}

	if err := t.Products.Delete(ctx, product); err != nil {
		apperror.Respond(c, err, "Failed to delete product")
		return
	}

	h.logger.LogDelete(c, "product", product.ID, summary(product))

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
