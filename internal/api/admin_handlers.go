package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// AdminListProducts lists the whole catalog, inactive products included
func (h *Handler) AdminListProducts(c *gin.Context) {
	var params models.ProductListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}
	params.IncludeInactive = true

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	resp, err := h.store.ListProducts(ctx, params)
	if err != nil {
		respondError(c, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdminListOrders retrieves all orders with filtering for admin
func (h *Handler) AdminListOrders(c *gin.Context) {
	var req models.AdminOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}
	req.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	resp, err := h.store.AdminListOrders(ctx, req)
	if err != nil {
		respondError(c, "Failed to get orders", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdminGetOrder returns an order with its items and status history
func (h *Handler) AdminGetOrder(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	detail, err := h.store.AdminGetOrder(ctx, id)
	if err != nil {
		respondError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// AdminUpdateOrderStatus moves an order through its lifecycle. Marking an order paid
// credits volume and commission exactly as a gateway confirmation would.
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request data",
			Message: err.Error(),
		})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid status",
			Message: fmt.Sprintf("unknown order status %q", req.Status),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var (
		order *models.Order
		err   error
	)
	if req.Status == models.OrderStatusPaid {
		var res *db.PaymentResult
		res, err = h.store.MarkPaid(ctx, id, &models.PaymentConfirmation{Provider: "manual"}, &adminID)
		if err == nil && !res.Applied {
			err = fmt.Errorf("%w: %s -> paid", db.ErrInvalidTransition, res.Order.Status)
		}
		if err == nil {
			order = res.Order
			h.afterPayment(ctx, res)
		}
	} else {
		order, err = h.store.UpdateOrderStatus(ctx, id, req.Status, &adminID, req.Reason)
	}
	if err != nil {
		respondError(c, "Failed to update order status", err)
		return
	}

	logging.LogKV("info", "order status updated", map[string]interface{}{
		"order_id": id,
		"status":   order.Status,
		"admin_id": adminID,
	})
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order status updated successfully",
		Data:    order,
	})
}

// AdminListCustomers lists consultants with their order totals
func (h *Handler) AdminListCustomers(c *gin.Context) {
	var params models.CustomerListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}
	params.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	resp, err := h.store.ListCustomers(ctx, params)
	if err != nil {
		respondError(c, "Failed to get customers", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) AdminGetCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	customer, err := h.store.GetCustomer(ctx, id)
	if err != nil {
		respondError(c, "Customer not found", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// AdminUpdateCustomer edits a consultant's profile. A rank_name overrides the
// computed rank, demotions included.
func (h *Handler) AdminUpdateCustomer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.AdminUpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.store.AdminUpdateCustomer(ctx, id, req)
	if err != nil {
		respondError(c, "Failed to update customer", err)
		return
	}
	h.broker.Publish(id, events.ProfileUpdated)
	c.JSON(http.StatusOK, profile)
}

// AdminSetRole grants or revokes back-office access
func (h *Handler) AdminSetRole(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	if id == adminID && !*req.Admin {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: "You cannot revoke your own admin role",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.SetAdminRole(ctx, id, *req.Admin); err != nil {
		respondError(c, "Failed to update role", err)
		return
	}
	fields := map[string]interface{}{
		"user_id":  id,
		"admin":    *req.Admin,
		"admin_id": adminID,
	}
	// A demoted admin keeps only the access token already issued.
	if !*req.Admin {
		n, err := h.store.RevokeUserRefreshTokens(ctx, id)
		if err != nil {
			respondError(c, "Failed to revoke sessions", err)
			return
		}
		fields["revoked_tokens"] = n
	}

	logging.LogKV("info", "role changed", fields)
	h.broker.Publish(id, events.RoleChanged)
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Role updated successfully",
		Data:    gin.H{"user_id": id, "admin": *req.Admin},
	})
}

// AdminGetCustomerNetwork renders any consultant's downline
func (h *Handler) AdminGetCustomerNetwork(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	h.respondNetwork(c, id)
}

// ListRanks returns the compensation plan ordered by level
func (h *Handler) ListRanks(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ranks, err := h.store.ListRanks(ctx)
	if err != nil {
		respondError(c, "Failed to get ranks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranks": ranks})
}

func (h *Handler) CreateRank(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rank, err := h.store.CreateRank(ctx, req)
	if err != nil {
		respondError(c, "Failed to create rank", err)
		return
	}
	c.JSON(http.StatusCreated, rank)
}

// UpdateRank edits a rank. The request must carry the version it was read at.
func (h *Handler) UpdateRank(c *gin.Context) {
	id, ok := rankParam(c)
	if !ok {
		return
	}
	var req models.UpdateRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	rank, err := h.store.UpdateRank(ctx, id, req)
	if err != nil {
		respondError(c, "Failed to update rank", err)
		return
	}
	c.JSON(http.StatusOK, rank)
}

func (h *Handler) DeleteRank(c *gin.Context) {
	id, ok := rankParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.DeleteRank(ctx, id); err != nil {
		respondError(c, "Failed to delete rank", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Rank deleted successfully"})
}

// MoveRank swaps a rank's level with its neighbour and returns the reordered plan.
func (h *Handler) MoveRank(c *gin.Context) {
	id, ok := rankParam(c)
	if !ok {
		return
	}
	var req models.MoveRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ranks, err := h.store.MoveRank(ctx, id, req.Direction)
	if err != nil {
		respondError(c, "Failed to move rank", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranks": ranks})
}

func rankParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid ID format",
			Message: "rank id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// AdminListWithdrawals lists payout requests, optionally filtered by status or consultant
func (h *Handler) AdminListWithdrawals(c *gin.Context) {
	var params models.WithdrawalListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}
	if params.Status != "" && !models.WithdrawalStatus(params.Status).IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid status",
			Message: fmt.Sprintf("unknown withdrawal status %q", params.Status),
		})
		return
	}
	params.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	resp, err := h.store.AdminListWithdrawals(ctx, params)
	if err != nil {
		respondError(c, "Failed to get withdrawals", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdminUpdateWithdrawalStatus approves, rejects or settles a payout request and
// tells the consultant.
func (h *Handler) AdminUpdateWithdrawalStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	adminID, ok := requireUser(c)
	if !ok {
		return
	}
	var req models.UpdateWithdrawalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request data",
			Message: err.Error(),
		})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid status",
			Message: fmt.Sprintf("unknown withdrawal status %q", req.Status),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	w, err := h.store.UpdateWithdrawalStatus(ctx, id, req.Status, strings.TrimSpace(req.Notes), adminID)
	if err != nil {
		respondError(c, "Failed to update withdrawal", err)
		return
	}

	logging.LogKV("info", "withdrawal processed", map[string]interface{}{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"status":        w.Status,
		"admin_id":      adminID,
	})
	h.broker.Publish(w.UserID, events.ProfileUpdated)
	if to, ok := h.recipient(ctx, w.UserID); ok {
		h.notifier.WithdrawalStatusChanged(ctx, to, w)
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Withdrawal updated successfully",
		Data:    w,
	})
}

// GetStatistics returns the back-office dashboard figures
func (h *Handler) GetStatistics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), adminTimeout)
	defer cancel()

	stats, err := h.store.GetAdminStatistics(ctx)
	if err != nil {
		respondError(c, "Failed to get statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
