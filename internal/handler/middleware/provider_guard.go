package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/pkg/response"
)

// RequireProvider rejects requests whose :provider parameter is not in
// registry with a 404.
func RequireProvider(registry *provider.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if registry.Has(c.Param("provider")) {
			c.Next()
			return
		}
		if WantsJSON(c) {
			response.NotFound(c, "not found")
		} else {
			c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		}
		c.Abort()
	}
}
