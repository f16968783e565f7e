package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"insightdocs-gateway/internal/auth"
)

// BearerToken lifts the caller's Authorization header onto the request
// context so the credential provider can forward it upstream. Requests
// without a bearer token pass through; the pipeline rejects them later if no
// fallback credential is configured either.
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
			if token != "" {
				c.Request = c.Request.WithContext(auth.WithToken(c.Request.Context(), token))
			}
		}
		c.Next()
	}
}
