package httputil

import (
	"github.com/gin-gonic/gin"
)

// CallerIDHeader carries the authenticated caller identity. Authentication
// itself happens upstream; the service trusts the header.
const CallerIDHeader = "X-Caller-ID"

// callerIDKey is the gin context key set by the caller identity middleware.
const callerIDKey = "caller_id"

// SetCallerID stores the caller identity on the request context.
func SetCallerID(c *gin.Context, callerID string) {
	c.Set(callerIDKey, callerID)
}

// CallerID returns the caller identity set by the middleware, or "".
func CallerID(c *gin.Context) string {
	return c.GetString(callerIDKey)
}
