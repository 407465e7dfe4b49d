package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// --- Refresh token helpers ---
func generateRefreshTokenString(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (h *Handler) accessTokenTTL() time.Duration {
	if h.cfg.AccessTokenTTL > 0 {
		return h.cfg.AccessTokenTTL
	}
	return time.Hour
}

func (h *Handler) refreshTokenTTL() time.Duration {
	if h.cfg.RefreshTokenTTL > 0 {
		return h.cfg.RefreshTokenTTL
	}
	return 30 * 24 * time.Hour
}

func (h *Handler) generateJWTToken(user *models.User) (string, time.Time, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	expiresAt := now.Add(h.accessTokenTTL())
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}
	if user.Role != "" {
		claims["role"] = user.Role
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// issueSession creates an access token and a stored refresh token for user.
func (h *Handler) issueSession(ctx context.Context, c *gin.Context, user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := h.generateJWTToken(user)
	if err != nil {
		return nil, err
	}
	plainRefresh, refreshExpiresAt, err := h.newRefreshToken(ctx, c, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:            token,
		ExpiresAt:        expiresAt,
		RefreshToken:     plainRefresh,
		RefreshExpiresAt: refreshExpiresAt,
		User:             *user,
	}, nil
}

func (h *Handler) newRefreshToken(ctx context.Context, c *gin.Context, userID string) (string, time.Time, error) {
	plain, err := generateRefreshTokenString(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	expiresAt := time.Now().Add(h.refreshTokenTTL())
	if _, err := h.store.CreateRefreshToken(ctx, userID, db.HashRefreshToken(plain), expiresAt, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		return "", time.Time{}, err
	}
	return plain, expiresAt, nil
}
