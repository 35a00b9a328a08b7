package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tenantKey    = "tenant_id"
	tenantHeader = "X-Tenant-ID"
)

type AuthConfig struct {
	JWTSecret    string
	StaticTokens []string
}

// Auth middleware supporting static tokens or JWT. A JWT carries the tenant
// in its tenant_id claim; static tokens name it in the X-Tenant-ID header.
func AuthMiddleware(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if cfg.JWTSecret != "" {
			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				if tenant, ok := claims[tenantKey].(string); ok {
					c.Set(tenantKey, tenant)
				}
				c.Next()
				return
			}
		}

		// static tokens
		for _, t := range cfg.StaticTokens {
			if tokenStr == strings.TrimSpace(t) {
				c.Set(tenantKey, strings.TrimSpace(c.GetHeader(tenantHeader)))
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

// RequireTenant rejects authenticated requests that name no tenant.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID(c) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "tenant required"})
			return
		}
		c.Next()
	}
}

func tenantID(c *gin.Context) string {
	return c.GetString(tenantKey)
}
