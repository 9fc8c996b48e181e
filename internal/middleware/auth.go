package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

type PrincipalResolver interface {
	Resolve(ctx context.Context, credential string) (services.Principal, error)
}

// AuthMiddleware accepts only a Bearer token in the Authorization header.
func AuthMiddleware(resolver PrincipalResolver) gin.HandlerFunc {
	return authenticate(resolver, false)
}

// WebSocketAuthMiddleware also accepts ?token= since browsers cannot set
// headers on a websocket handshake. Mount it on the upgrade route only.
func WebSocketAuthMiddleware(resolver PrincipalResolver) gin.HandlerFunc {
	return authenticate(resolver, true)
}

func authenticate(resolver PrincipalResolver, allowQueryToken bool) gin.HandlerFunc {
	missing := "Authorization header required"
	if allowQueryToken {
		missing = "Authorization header or token query parameter required"
	}

	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" && allowQueryToken {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": missing})
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), tokenString)
		switch {
		case errors.Is(err, services.ErrUnauthenticated):
			c.AbortWithStatusJSON(401, gin.H{"error": "Invalid token"})
			return
		case errors.Is(err, services.ErrInvalidPrincipal):
			c.AbortWithStatusJSON(401, gin.H{"error": "Account not found"})
			return
		case err != nil:
			_ = c.Error(err)
			c.AbortWithStatusJSON(500, gin.H{"error": "Failed to authenticate"})
			return
		}

		c.Set(principalKey, principal)
		c.Set("userId", principal.PrincipalID())
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(services.Principal)
	return p, ok
}
