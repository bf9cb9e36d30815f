package profile

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Musavvir24/my-software/pkg/activitylog"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/middleware"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxLogoSize = 500 * 1024

type Handler struct {
	logger *activitylog.Logger
}

func NewHandler() *Handler {
	return &Handler{logger: activitylog.NewLogger()}
}

// load returns the tenant's profile, or an unsaved empty one.
func load(ctx context.Context, t *tenant.Tenant) (*database.Profile, error) {
	var p database.Profile
	err := t.Profiles.Query(ctx).Order("created_at ASC").Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &database.Profile{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns the issuer profile, empty when none was saved
func (h *Handler) Get(c *gin.Context) {
	p, err := load(c.Request.Context(), middleware.Tenant(c))
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

type UpdateProfileRequest struct {
	CompanyName    *string `json:"companyName"`
	CompanyAddress *string `json:"companyAddress"`
	CompanyPhone   *string `json:"companyPhone"`
	CompanyLogo    *string `json:"companyLogo"`
}

// Save creates or updates the single profile of the tenant
func (h *Handler) Save(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := load(ctx, t)
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch profile")
		return
	}

	if req.CompanyName != nil {
		p.CompanyName = strings.TrimSpace(*req.CompanyName)
	}
	if req.CompanyAddress != nil {
		p.CompanyAddress = strings.TrimSpace(*req.CompanyAddress)
	}
	if req.CompanyPhone != nil {
		p.CompanyPhone = strings.TrimSpace(*req.CompanyPhone)
	}
	if req.CompanyLogo != nil {
		p.CompanyLogo = *req.CompanyLogo
	}

	if err := t.Profiles.Save(ctx, p); err != nil {
		apperror.Respond(c, err, "Failed to save profile")
		return
	}

	h.logger.LogUpdate(c, "profile", p.ID, nil, map[string]interface{}{
		"companyName": p.CompanyName,
	})

	c.JSON(http.StatusOK, gin.H{
		"data":    p,
		"message": "Profile saved successfully",
	})
}

// UploadLogo stores an uploaded image as the profile logo, as a data URI
func (h *Handler) UploadLogo(c *gin.Context) {
	t := middleware.Tenant(c)
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("logo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if header.Size > maxLogoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum 500KB allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed"})
		return
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxLogoSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if len(fileBytes) > maxLogoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large. Maximum 500KB allowed"})
		return
	}

	dataURI := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(fileBytes)

	p, err := load(ctx, t)
	if err != nil {
		apperror.Respond(c, err, "Failed to fetch profile")
		return
	}
	p.CompanyLogo = dataURI

	if err := t.Profiles.Save(ctx, p); err != nil {
		apperror.Respond(c, err, "Failed to save logo")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    p,
		"message": "Logo uploaded successfully",
	})
}
