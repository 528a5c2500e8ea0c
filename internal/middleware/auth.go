package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/block/flight-control/internal/pkg/logger"
	"github.com/block/flight-control/internal/services"
)

const (
	authContextKey  = "authContext"
	workspaceHeader = "X-Workspace-ID"
	bearerPrefix    = "Bearer "
)

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), auth: auth}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing or invalid token", "code": "unauthenticated"}})
			return
		}
		workspaceID := c.GetHeader(workspaceHeader)

		auth, err := am.auth.Authenticate(c.Request.Context(), token, workspaceID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnauthenticated):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": err.Error(), "code": "unauthenticated"}})
			case errors.Is(err, services.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": err.Error(), "code": "forbidden"}})
			default:
				am.log.Error("Authentication failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "internal error", "code": "internal"}})
			}
			return
		}
		c.Set(authContextKey, auth)
		c.Next()
	}
}

func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := GetAuthContext(c)
		if auth == nil || !auth.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "admin access required", "code": "forbidden"}})
			return
		}
		c.Next()
	}
}

func GetAuthContext(c *gin.Context) *services.AuthContext {
	v, ok := c.Get(authContextKey)
	if !ok {
		return nil
	}
	auth, ok := v.(*services.AuthContext)
	if !ok {
		return nil
	}
	return auth
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return header[len(bearerPrefix):]
	}
	return ""
}
