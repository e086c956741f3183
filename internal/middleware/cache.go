package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids caching of the response by browsers and proxies. Attempt
// payloads are per-student and time-sensitive.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
