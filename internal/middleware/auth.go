package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/bounty-flow-api/internal/auth"
	"github.com/yukikurage/bounty-flow-api/internal/constants"
	apierrors "github.com/yukikurage/bounty-flow-api/internal/errors"
)

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUint64(session.Get(constants.ContextKeyUserID))
		if !ok || userID == 0 {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		SetPrincipal(c, userID)
		c.Next()
	}
}

// SetPrincipal records the verified caller in the gin context and in the
// request context read by auth.ContextGuard.
func SetPrincipal(c *gin.Context, userID uint64) {
	c.Set(constants.ContextKeyUserID, userID)
	if c.Request != nil {
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), userID))
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

func toUint64(v any) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
