package activity

import (
	"net/http"
	"strconv"

	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type Handler struct {
	logger *activitylog.Logger
}

func NewHandler() *Handler {
	return &Handler{logger: activitylog.NewLogger()}
}

// List retrieves the newest audit entries of the tenant
func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	logs, err := h.logger.List(c, limit)
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch activity logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
