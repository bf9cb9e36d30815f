package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Musavvir24/my-software/internal/config"
	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/database"
	"github.com/Musavvir24/my-software/pkg/logger"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/Musavvir24/my-software/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const (
	stateCookie     = "oauth_state"
	googleUserInfo  = "https://www.googleapis.com/oauth2/v2/userinfo"
	minPasswordSize = 6
)

// Provisioner creates a tenant's storage for an account.
type Provisioner interface {
	Resolve(ctx context.Context, email string) (*tenant.Tenant, error)
}

type Handler struct {
	db           *gorm.DB
	tenants      Provisioner
	secret       string
	ttl          time.Duration
	frontendURL  string
	googleConfig *oauth2.Config
	userInfoURL  string
}

// NewHandler serves accounts stored in db. Google login is only offered
// when cfg carries client credentials.
func NewHandler(db *gorm.DB, tenants Provisioner, cfg *config.Config) *Handler {
	h := &Handler{
		db:          db,
		tenants:     tenants,
		secret:      cfg.JWTSecret,
		ttl:         cfg.JWTTTL,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		userInfoURL: googleUserInfo,
	}
	if cfg.GoogleEnabled() {
		h.googleConfig = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string        `json:"token"`
	User  database.User `json:"user"`
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// provision makes sure the account's tenant storage exists.
func (h *Handler) provision(ctx context.Context, email string) error {
	if _, err := h.tenants.Resolve(ctx, email); err != nil {
		return fmt.Errorf("provision tenant: %w", err)
	}
	return nil
}

// Signup creates an account with an email and password
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Name, email and a password of at least %d characters are required", minPasswordSize)})
		return
	}
	email := tenant.NormalizeEmail(req.Email)
	ctx := c.Request.Context()

	var existing database.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := database.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if apperror.IsDuplicate(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		apperror.Respond(c, err, "Failed to create user")
		return
	}

	if err := h.provision(ctx, email); err != nil {
		apperror.Respond(c, err, "Failed to set up account storage")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login authenticates a user with email/password
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	var user database.User
	if err := h.db.WithContext(ctx).Where("email = ?", tenant.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// Google-only accounts have no password
	if user.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := h.provision(ctx, user.Email); err != nil {
		apperror.Respond(c, err, "Failed to open account storage")
		return
	}

	signed, err := token.Issue(h.secret, h.ttl, user.ID.String(), user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: signed, User: user})
}

// GetMe returns the account of the request's tenant
func (h *Handler) GetMe(c *gin.Context) {
	var user database.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", c.GetString("user_email")).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GoogleLogin redirects to Google OAuth consent screen
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google login is not configured"})
		return
	}

	// state guards the callback against CSRF
	state := uuid.New().String()
	c.SetCookie(stateCookie, state, 300, "/", "", false, true)

	c.Redirect(http.StatusTemporaryRedirect, h.googleConfig.AuthCodeURL(state))
}

// GoogleCallback handles the OAuth callback from Google
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Google login is not configured"})
		return
	}

	state := c.Query("state")
	storedState, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state parameter"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No authorization code"})
		return
	}

	ctx := c.Request.Context()
	log := logger.WithComponent("auth")

	oauthToken, err := h.googleConfig.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("google token exchange failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange token"})
		return
	}

	info, err := h.fetchGoogleUser(ctx, oauthToken)
	if err != nil {
		log.Error().Err(err).Msg("google user info failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user info"})
		return
	}

	user, err := h.upsertGoogleUser(ctx, info)
	if err != nil {
		apperror.Respond(c, err, "Failed to sign in with Google")
		return
	}
	if err := h.provision(ctx, user.Email); err != nil {
		apperror.Respond(c, err, "Failed to set up account storage")
		return
	}

	signed, err := token.Issue(h.secret, h.ttl, user.ID.String(), user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/callback?token="+url.QueryEscape(signed))
}

func (h *Handler) fetchGoogleUser(ctx context.Context, t *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := h.googleConfig.Client(ctx, t).Get(h.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("userinfo without email")
	}
	return &info, nil
}

// upsertGoogleUser finds the account by Google id, then by email, creating
// it on first login.
func (h *Handler) upsertGoogleUser(ctx context.Context, info *GoogleUserInfo) (*database.User, error) {
	db := h.db.WithContext(ctx)
	email := tenant.NormalizeEmail(info.Email)

	var user database.User
	err := db.Where("google_id = ?", info.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		user.GoogleID = info.ID
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user = database.User{
		Name:     info.Name,
		Email:    email,
		GoogleID: info.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, apperror.Wrap("auth.upsertGoogleUser", err)
	}
	return &user, nil
}
