// internal/middleware/helpers.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GetOperatorID returns the authenticated operator id.
func GetOperatorID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxOperatorID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetJTI returns the id of the access token the request was made with.
func GetJTI(c *gin.Context) string {
	return c.GetString(ctxJTI)
}

// GetTokenExpiry returns when the request's access token expires.
func GetTokenExpiry(c *gin.Context) (time.Time, bool) {
	v, exists := c.Get(ctxTokenExp)
	if !exists {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
