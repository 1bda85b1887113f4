package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/relaycrm/pkg/auth"
	"github.com/relaycrm/relaycrm/pkg/config"
)

// Auth enforces bearer authentication on the v1 API. When a JWT secret is
// configured the token is validated and the tenant claim is placed on the
// request context; otherwise only the header shape is checked.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	var manager *auth.APITokenManager
	if cfg.JWTSecret != "" {
		manager = auth.NewAPITokenManager([]byte(cfg.JWTSecret), cfg.TokenTTL)
	}

	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}
		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		if manager != nil {
			claims, err := manager.ValidateToken(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set("tenant_id", claims.TenantID)
		}

		c.Next()
	}
}
