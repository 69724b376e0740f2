package auth

import (
	"errors"
	"net/http"
	"strings"

	"campusmarket/internal/api"
	"campusmarket/internal/apperr"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

// Session is the authenticated caller of a request.
type Session struct {
	UserID string
	Email  string
	Role   string
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{
		Error: msg,
		Code:  apperr.KindUnauthenticated,
	})
}

func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(c, "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret, TokenAccess)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				unauthorized(c, "Token expired")
			case errors.Is(err, ErrInvalidTokenType):
				unauthorized(c, "Access token required")
			default:
				unauthorized(c, "Invalid or malformed token")
			}
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// OptionalAuth resolves the session when a valid access token is present and
// lets the request through either way. Handlers decide what a missing session
// means, so request validation can run before the authentication check.
func OptionalAuth(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			c.Next()
			return
		}

		claims, err := ValidateToken(strings.TrimSpace(tokenString), accessTokenSecret, TokenAccess)
		if err == nil {
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxUserEmail, claims.Email)
			c.Set(ctxUserRole, claims.Role)
		}

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxUserRole)
		if !exists {
			unauthorized(c, "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			unauthorized(c, "Invalid role type")
			return
		}

		if roleStr != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{
				Error: "Insufficient permissions",
				Code:  apperr.KindForbidden,
			})
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

// CurrentSession returns the caller resolved by AuthMiddleware.
func CurrentSession(c *gin.Context) (Session, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Session{}, false
	}
	return Session{
		UserID: id,
		Email:  c.GetString(ctxUserEmail),
		Role:   c.GetString(ctxUserRole),
	}, true
}
