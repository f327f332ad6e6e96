package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type authString string

// AuthMiddleware requires a valid, unrevoked bearer token and puts the user on the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		bearer := "Bearer "
		if len(auth) <= len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(auth[len(bearer):])

		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		revoked, err := models.IsTokenRevoked(token)
		if err != nil {
			config.LogError(config.GetLogger(), "AuthMiddleware", "IsTokenRevoked", "redis lookup", claims.Username, err)
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), authString("auth"), claims)
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.WithUser(ctx, claims.ID, claims.Username, claims.Username, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminOnly rejects non-admin users before the handler runs.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": utils.ErrAdminOnly.Error()})
			return
		}
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}
