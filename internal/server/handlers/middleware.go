package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// PrincipalHeader carries the caller identity set by the upstream gateway.
	PrincipalHeader = "X-User-ID"
	principalKey    = "principal"
)

// RequirePrincipal rejects write requests that do not carry a principal.
// Reads pass through without one.
func RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := strings.TrimSpace(c.GetHeader(PrincipalHeader))
		if principal != "" {
			c.Set(principalKey, principal)
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "Yêu cầu đăng nhập"})
	}
}

func actor(c *gin.Context) string {
	return c.GetString(principalKey)
}
