package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Musavvir24/my-software/pkg/apperror"
	"github.com/Musavvir24/my-software/pkg/tenant"
	"github.com/Musavvir24/my-software/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	tenantKey = "tenant"

	// EmailHeader names the account when no bearer token is sent.
	EmailHeader = "X-User-Email"
)

// Resolver maps an account email to its tenant.
type Resolver interface {
	Resolve(ctx context.Context, email string) (*tenant.Tenant, error)
}

// TenantRequired resolves the tenant of the request from the bearer token's
// email claim, falling back to the X-User-Email header. A bad token is 401;
// no identifier at all is 400.
func TenantRequired(resolver Resolver, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var email, userID string

		if raw, ok := token.FromHeader(c.GetHeader("Authorization")); ok {
			claims, err := token.Parse(secret, raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			email, userID = claims.Email, claims.UserID
		} else {
			email = strings.TrimSpace(c.GetHeader(EmailHeader))
		}

		if email == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "User email is required"})
			return
		}

		t, err := resolver.Resolve(c.Request.Context(), email)
		if err != nil {
			apperror.Respond(c, err, "Failed to open tenant database")
			c.Abort()
			return
		}

		SetTenant(c, t)
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// Tenant returns the tenant resolved by TenantRequired, or nil.
func Tenant(c *gin.Context) *tenant.Tenant {
	v, ok := c.Get(tenantKey)
	if !ok {
		return nil
	}
	t, _ := v.(*tenant.Tenant)
	return t
}

// SetTenant stores t on the request, for handlers mounted without
// TenantRequired.
func SetTenant(c *gin.Context, t *tenant.Tenant) {
	c.Set(tenantKey, t)
	c.Set("tenant_key", t.Key)
	c.Set("user_email", t.Email)
}
