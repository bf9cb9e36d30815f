package dashboard

import (
	"net/http"
	"strconv"

	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStats returns today's sales with the catalog summary
func (h *Handler) GetStats(c *gin.Context) {
	m, err := h.service.Today(c.Request.Context(), middleware.Tenant(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch dashboard data")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}

// GetMetrics returns all-time sales with the catalog summary
func (h *Handler) GetMetrics(c *gin.Context) {
	m, err := h.service.AllTime(c.Request.Context(), middleware.Tenant(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch dashboard metrics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": m})
}

// GetSalesParties returns daily sales and bill totals for the chart
func (h *Handler) GetSalesParties(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))

	series, err := h.service.SalesParties(c.Request.Context(), middleware.Tenant(c), days)
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch sales chart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": series})
}
