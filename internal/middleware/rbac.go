package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sms-core-api/pkg/errors"
	"github.com/noah-isme/sms-core-api/pkg/response"
)

type permissionChecker interface {
	HasPermission(ctx context.Context, userID, codename string) (bool, error)
}

// RequirePermission enforces that the caller holds codename through an active role.
// Must run after JWT.
func RequirePermission(checker permissionChecker, codename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := checker.HasPermission(c.Request.Context(), claims.UserID, codename)
		if err != nil {
			if appErrors.HasCode(err, appErrors.ErrNotFound) {
				err = appErrors.Clone(appErrors.ErrUnauthorized, "unknown user")
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission "+codename))
			c.Abort()
			return
		}
		c.Next()
	}
}
