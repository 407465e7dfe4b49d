package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// parseBearer validates the bearer token of the request and returns its claims.
// The returned status and response describe the failure when ok is false.
func parseBearer(c *gin.Context) (jwt.MapClaims, int, models.ErrorResponse, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Authorization header required",
			Message: "Please provide a valid authorization token",
		}, false
	}

	// Extract token from "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid authorization format",
			Message: "Authorization header must be in format 'Bearer <token>'",
		}, false
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Server not configured",
			Message: "JWT secret missing",
		}, false
	}

	token, err := jwt.Parse(tokenParts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid token",
			Message: "The provided token is invalid or expired",
		}, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid token claims",
			Message: "Could not parse token claims",
		}, false
	}
	return claims, 0, models.ErrorResponse{}, true
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	if uid, ok := claims["user_id"].(string); ok {
		c.Set("user_id", uid)
	}
	if email, ok := claims["email"].(string); ok {
		c.Set("email", email)
	}
	if r, ok := claims["role"].(string); ok {
		c.Set("role", r)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.Set("token_expires_at", exp.Time)
	}
}

// AuthMiddleware validates JWT tokens
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, status, resp, ok := parseBearer(c)
		if !ok {
			c.JSON(status, resp)
			c.Abort()
			return
		}
		setClaims(c, claims)
		if _, ok := GetUserID(c); !ok {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "Invalid token claims",
				Message: "Token carries no user",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware accepts a JWT when one is sent and never rejects the request.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if claims, _, _, ok := parseBearer(c); ok {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// AdminMiddleware ensures the caller's token carries the admin role
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "Admin access required",
				Message: "Admin role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from the JWT token claims
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok && userIDStr != ""
}

// IsAdmin reports whether the authenticated caller holds the admin role.
func IsAdmin(c *gin.Context) bool {
	roleVal, exists := c.Get("role")
	role, _ := roleVal.(string)
	return exists && role == models.RoleAdmin
}
