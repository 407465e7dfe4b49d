package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// RequestWithdrawal files a payout request against the caller's available balance.
func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	req.Amount = models.RoundMoney(req.Amount)
	if req.Amount < h.cfg.MinWithdrawal {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Amount too small",
			Message: fmt.Sprintf("The minimum withdrawal is %.2f", h.cfg.MinWithdrawal),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	w, err := h.store.RequestWithdrawal(ctx, userID, req)
	if err != nil {
		respondError(c, "Failed to request withdrawal", err)
		return
	}

	logging.LogKV("info", "withdrawal requested", map[string]interface{}{
		"user_id":       userID,
		"withdrawal_id": w.ID,
		"amount":        w.Amount,
	})
	c.JSON(http.StatusCreated, w)
}

// ListMyWithdrawals returns the caller's payout requests
func (h *Handler) ListMyWithdrawals(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	items, total, err := h.store.ListUserWithdrawals(ctx, userID, params)
	if err != nil {
		respondError(c, "Failed to get withdrawals", err)
		return
	}
	c.JSON(http.StatusOK, paged(items, total, params))
}

// ListMyBonuses returns the commissions credited to the caller
func (h *Handler) ListMyBonuses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	params, ok := bindListParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	items, total, err := h.store.ListBonuses(ctx, userID, params)
	if err != nil {
		respondError(c, "Failed to get bonuses", err)
		return
	}
	c.JSON(http.StatusOK, paged(items, total, params))
}

func bindListParams(c *gin.Context) (models.ListParams, bool) {
	var params models.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return params, false
	}
	params.Normalize()
	return params, true
}
