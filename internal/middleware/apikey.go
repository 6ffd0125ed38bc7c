package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tgexam/backend/internal/response"
)

// RequireAPIKey guards the admin surface. The key is accepted from the
// X-API-Key header or the api_key query parameter. An empty configured key
// rejects everything: the admin surface cannot be left open by omission.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			presented = c.Query("api_key")
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
