package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/compensation"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const recentOrderCount = 5

// GetProfile returns the caller's consultant profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile edits the caller's contact and address fields
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.UpdateProfile(ctx, userID, req)
	if err != nil {
		respondError(c, "Failed to update profile", err)
		return
	}
	h.broker.Publish(userID, events.ProfileUpdated)
	c.JSON(http.StatusOK, profile)
}

// UploadAvatar stores the multipart "image" field as the caller's avatar.
func (h *Handler) UploadAvatar(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()

	url, ok := h.saveUpload(ctx, c, "avatars/"+userID)
	if !ok {
		return
	}
	profile, err := h.store.UpdateProfile(ctx, userID, models.UpdateProfileRequest{AvatarURL: &url})
	if err != nil {
		respondError(c, "Failed to update profile", err)
		return
	}
	h.broker.Publish(userID, events.ProfileUpdated)
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Avatar uploaded successfully",
		Data:    profile,
	})
}

// GetRankProgress reports the caller's progress toward the next rank
func (h *Handler) GetRankProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get profile", err)
		return
	}
	ranks, err := h.store.ListRanks(ctx)
	if err != nil {
		respondError(c, "Failed to get ranks", err)
		return
	}
	c.JSON(http.StatusOK, compensation.Progress(ranks, profile.RankName, profile.PersonalVolume, profile.GroupVolume))
}

// GetDashboard gathers the back-office overview of the caller
func (h *Handler) GetDashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get profile", err)
		return
	}
	ranks, err := h.store.ListRanks(ctx)
	if err != nil {
		respondError(c, "Failed to get ranks", err)
		return
	}
	balance, err := h.store.GetBalance(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get balance", err)
		return
	}
	direct, err := h.store.CountDirectReferrals(ctx, userID)
	if err != nil {
		respondError(c, "Failed to count referrals", err)
		return
	}
	orders, _, err := h.store.ListUserOrders(ctx, userID, models.ListParams{Page: 1, Limit: recentOrderCount})
	if err != nil {
		respondError(c, "Failed to get orders", err)
		return
	}

	c.JSON(http.StatusOK, models.Dashboard{
		Profile:          *profile,
		RankProgress:     compensation.Progress(ranks, profile.RankName, profile.PersonalVolume, profile.GroupVolume),
		TotalEarned:      balance.TotalEarned,
		AvailableBalance: balance.Available,
		PendingPayouts:   balance.PendingPayouts,
		DirectReferrals:  direct,
		RecentOrders:     orders,
	})
}
