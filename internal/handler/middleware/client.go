package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// WantsJSON reports whether the caller is a script rather than a browser
// navigation: an XMLHttpRequest or a request that accepts only JSON.
func WantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
