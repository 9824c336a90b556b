package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/auth"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

const userKey = "user"

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

type UserResolver interface {
	Resolve(ctx context.Context, subject, hint string) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token and stores the resolved
// profile in the request context.
func AuthMiddleware(tokens TokenParser, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := users.Resolve(c.Request.Context(), claims.Subject, claims.Name)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth resolves the caller when a valid token is present and lets
// anonymous requests through untouched.
func OptionalAuth(tokens TokenParser, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if claims, err := tokens.Parse(raw); err == nil {
				if user, err := users.Resolve(c.Request.Context(), claims.Subject, claims.Name); err == nil {
					c.Set(userKey, user)
				}
			}
		}
		c.Next()
	}
}

// CurrentUser returns the caller set by the auth middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
