package router

import (
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/models"
)

// URLMiddleware sets the public base URL of the API in the request context.
// Handlers use it to build links.
func URLMiddleware(url *url.URL) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(models.ContextURL), url.String())
		c.Next()
	}
}
