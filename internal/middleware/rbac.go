package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/integrity-report-api/internal/policy"
	appErrors "github.com/noah-isme/integrity-report-api/pkg/errors"
	"github.com/noah-isme/integrity-report-api/pkg/response"
)

// Require gates a route on a policy action. Missing claims yield 401, a
// denied action 403.
func Require(action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentUser(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !policy.Allowed(actor, action) {
			response.Error(c, appErrors.Clone(appErrors.ErrPermissionDenied, "not allowed to "+readable(action)))
			c.Abort()
			return
		}
		c.Next()
	}
}

func readable(action policy.Action) string {
	return strings.ReplaceAll(string(action), "_", " ")
}
