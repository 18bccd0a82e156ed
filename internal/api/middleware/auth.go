package middleware

import (
	"net/http"
	"strings"

	"college-records/internal/domain/user"
	"college-records/pkg/logger"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// TokenParser verifies a bearer token and returns its principal
type TokenParser interface {
	ParseToken(token string) (*user.Principal, error)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// Auth requires a valid bearer token and stores the principal in the context
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		principal, err := parser.ParseToken(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("Rejected bearer token: %v", err)
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole rejects principals that carry none of roles
func RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		for _, role := range roles {
			if principal.HasRole(role) {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "Access denied")
	}
}

// PrincipalFrom returns the authenticated principal, or nil
func PrincipalFrom(c *gin.Context) *user.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*user.Principal)
	return principal
}
