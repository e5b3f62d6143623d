package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = "86400"

// CORS answers preflight requests with 204 and decorates the rest. A request
// Origin is echoed when allowed; requests without one get "*".
func CORS(allowedOrigins []string, headers ...string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	if len(headers) == 0 {
		headers = []string{"Content-Type"}
	}
	allowHeaders := strings.Join(headers, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin == "":
			h.Set("Access-Control-Allow-Origin", "*")
		case allowAll || allowed[origin]:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Max-Age", corsMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
