package middleware

import (
	"net/http"
	"strings"

	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/pkg/response"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserIDKey = "auth_user_id"
	ctxRoleKey   = "auth_role"
)

// AuthMiddleware validates the Bearer token and stores the caller's
// identity on the gin context.
func AuthMiddleware(tokens *accounts.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeBadRequest, "missing bearer token"))
			return
		}
		claims, err := tokens.Validate(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid or expired token"))
			return
		}
		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route group to one or more roles. Must run after
// AuthMiddleware.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := AuthRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			response.ErrorT[any](response.APIResponseCodeBadRequest, "insufficient role"))
	}
}

// AuthUserID returns the authenticated user's id, or "".
func AuthUserID(c *gin.Context) string {
	id, _ := c.Get(ctxUserIDKey)
	s, _ := id.(string)
	return s
}

// AuthRole returns the authenticated user's role, or "".
func AuthRole(c *gin.Context) types.Role {
	r, _ := c.Get(ctxRoleKey)
	role, _ := r.(types.Role)
	return role
}
