package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const sseKeepAlive = 25 * time.Second

// Signup registers a consultant and signs them in
func (h *Handler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, "Failed to hash password", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.store.CreateAccount(ctx, models.NewAccount{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
		GrantAdmin:   h.cfg.IsAdminEmail(req.Email),
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "Email already registered",
				Message: "An account with this email already exists",
			})
		case errors.Is(err, db.ErrInvalidReferral):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid referral code",
				Message: "No consultant uses that referral code",
			})
		default:
			respondError(c, "Failed to create account", err)
		}
		return
	}

	resp, err := h.issueSession(ctx, c, user)
	if err != nil {
		respondError(c, "Failed to generate token", err)
		return
	}

	logging.LogKV("info", "account created", map[string]interface{}{
		"user_id":  user.ID,
		"admin":    user.IsAdmin(),
		"referred": strings.TrimSpace(req.ReferralCode) != "",
	})
	h.broker.Publish(user.ID, events.SignedIn)
	c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new session
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	invalid := models.ErrorResponse{
		Error:   "Invalid credentials",
		Message: "Email or password is incorrect",
	}
	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, invalid)
		return
	}
	if err != nil {
		respondError(c, "Failed to sign in", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, invalid)
		return
	}

	resp, err := h.issueSession(ctx, c, user)
	if err != nil {
		respondError(c, "Failed to generate token", err)
		return
	}
	h.broker.Publish(user.ID, events.SignedIn)
	c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new access token.
// By default it does not rotate the refresh token unless rotate=true is provided.
func (h *Handler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Message: "refresh_token is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stored, err := h.store.GetRefreshToken(ctx, db.HashRefreshToken(req.RefreshToken))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		respondError(c, "Failed to refresh session", err)
		return
	}
	if stored == nil || stored.Revoked || time.Now().After(stored.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid refresh token", Message: "Token is invalid, expired, or revoked"})
		return
	}

	user, err := h.store.GetUserByID(ctx, stored.UserID)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid refresh token", Message: "Account no longer exists"})
		return
	}
	if err != nil {
		respondError(c, "Failed to refresh session", err)
		return
	}

	token, expiresAt, err := h.generateJWTToken(user)
	if err != nil {
		respondError(c, "Failed to generate token", err)
		return
	}
	resp := models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: *user}

	if req.Rotate != nil && *req.Rotate {
		if err := h.store.RevokeRefreshToken(ctx, stored.ID); err != nil {
			respondError(c, "Failed to rotate refresh token", err)
			return
		}
		plain, refreshExpiresAt, err := h.newRefreshToken(ctx, c, user.ID)
		if err != nil {
			respondError(c, "Failed to persist refresh token", err)
			return
		}
		resp.RefreshToken = plain
		resp.RefreshExpiresAt = refreshExpiresAt
	}

	h.broker.Publish(user.ID, events.TokenRefreshed)
	c.JSON(http.StatusOK, resp)
}

// Logout revokes one refresh token, or every session of the caller when none is given.
func (h *Handler) Logout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.LogoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Message: err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var revoked int64
	if plain := strings.TrimSpace(req.RefreshToken); plain != "" {
		stored, err := h.store.GetRefreshToken(ctx, db.HashRefreshToken(plain))
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			respondError(c, "Failed to sign out", err)
			return
		}
		if stored != nil && stored.UserID == userID && !stored.Revoked {
			if err := h.store.RevokeRefreshToken(ctx, stored.ID); err != nil {
				respondError(c, "Failed to sign out", err)
				return
			}
			revoked = 1
		}
	} else {
		n, err := h.store.RevokeUserRefreshTokens(ctx, userID)
		if err != nil {
			respondError(c, "Failed to sign out", err)
			return
		}
		revoked = n
	}

	h.broker.Publish(userID, events.SignedOut)
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Signed out",
		Data:    gin.H{"revoked": revoked},
	})
}

// GetSession describes the caller's current session
func (h *Handler) GetSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		respondError(c, "Failed to load session", err)
		return
	}
	resp := models.SessionResponse{User: *user, IsAdmin: user.IsAdmin()}
	if profile, err := h.store.GetProfile(ctx, userID); err == nil {
		resp.Profile = profile
	} else if !errors.Is(err, db.ErrNotFound) {
		respondError(c, "Failed to load session", err)
		return
	}
	if exp, ok := c.Get("token_expires_at"); ok {
		resp.ExpiresAt, _ = exp.(time.Time)
	}
	c.JSON(http.StatusOK, resp)
}

// SessionEvents streams the caller's session changes as Server-Sent Events.
func (h *Handler) SessionEvents(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	sub := h.broker.Subscribe(userID)
	defer sub.Cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.SSEvent("ready", gin.H{"user_id": userID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Unix())
			return true
		}
	})
}
