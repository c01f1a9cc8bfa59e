package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/statusgraph/pkg/errors"
	"github.com/noah-isme/statusgraph/pkg/response"
)

// FeatureGate answers 503 for every route in the group while enabled is false.
func FeatureGate(name string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrUnavailable, name+" are disabled"))
			c.Abort()
			return
		}
		c.Next()
	}
}
