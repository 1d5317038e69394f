package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// metricsAuthMiddleware returns a Gin middleware that enforces Basic Auth for /metrics.
// An empty password disables authentication (pass-through).
func metricsAuthMiddleware(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.Next()
			return
		}

		user, pass, hasAuth := c.Request.BasicAuth()
		if !hasAuth {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		// Constant-time comparison to prevent timing attacks
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1

		if !userMatch || !passMatch {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}

// webhookTokenMiddleware admits only requests whose :token path segment
// equals the bot token. Anything else looks like an unknown route.
func webhookTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(token)) != 1 {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}
