package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/events"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/payfast"
	"github.com/Pixelkingsa/consultant-connect/internal/services"
)

const maxNotifyBody = 64 << 10

// Checkout turns the caller's cart into an order and returns the payment form
func (h *Handler) Checkout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.CheckoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid request",
				Message: err.Error(),
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.store.Checkout(ctx, userID, req.ShippingAddress, h.cfg.TaxRate)
	if err != nil {
		respondError(c, "Failed to create order", err)
		return
	}

	logging.LogKV("info", "order created", map[string]interface{}{
		"user_id":  userID,
		"order_id": order.ID,
		"total":    order.Total,
		"total_vp": order.TotalVP,
	})

	resp := models.CheckoutResponse{Order: *order}
	if h.payfast != nil {
		buyer := payfast.Buyer{}
		if email, ok := c.Get("email"); ok {
			buyer.Email, _ = email.(string)
		}
		if profile, err := h.store.GetProfile(ctx, userID); err == nil {
			buyer.FullName = profile.FullName
			buyer.Email = profile.Email
		}
		resp.Payment = h.payfast.BuildForm(order, buyer)
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMyOrders returns the caller's orders, newest first
func (h *Handler) ListMyOrders(c *gin.Context) {
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

	orders, total, err := h.store.ListUserOrders(ctx, userID, params)
	if err != nil {
		respondError(c, "Failed to get orders", err)
		return
	}
	c.JSON(http.StatusOK, paged(orders, total, params))
}

// GetMyOrder returns one of the caller's orders. Other users' orders are reported as missing.
func (h *Handler) GetMyOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.store.GetOrder(ctx, id)
	if err == nil && order.UserID != userID {
		err = db.ErrNotFound
	}
	if err != nil {
		respondError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelMyOrder cancels an unpaid order of the caller and restores stock
func (h *Handler) CancelMyOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	order, err := h.store.CancelOrder(ctx, id, &userID, &userID, "cancelled by customer")
	if err != nil {
		respondError(c, "Failed to cancel order", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order cancelled successfully",
		Data:    order,
	})
}

// PayFastNotify handles the gateway's server-to-server payment notification. A
// notification with a valid signature is always acknowledged with 200.
func (h *Handler) PayFastNotify(c *gin.Context) {
	if h.payfast == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Payments unavailable"})
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotifyBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid notification", Message: err.Error()})
		return
	}

	n, err := h.payfast.ParseNotification(string(raw))
	if err != nil {
		logging.LogKV("warn", "payfast notification rejected", map[string]interface{}{
			"error":     err,
			"client_ip": c.ClientIP(),
		})
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid notification", Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	fields := map[string]interface{}{
		"reference":      n.PaymentReference,
		"payment_status": n.PaymentStatus,
		"pf_payment_id":  n.ProviderPaymentID,
	}
	order, err := h.store.GetOrderByReference(ctx, n.PaymentReference)
	if err != nil {
		logging.Error("payfast notification for unknown order", err, fields)
		c.Status(http.StatusOK)
		return
	}
	fields["order_id"] = order.ID

	switch {
	case n.Complete():
		if err := payfast.VerifyAmount(n, order.Total); err != nil {
			logging.Error("payfast amount mismatch", err, fields)
			c.Status(http.StatusOK)
			return
		}
		res, err := h.store.MarkPaid(ctx, order.ID, &models.PaymentConfirmation{
			Reference:         n.PaymentReference,
			Provider:          payfast.ProviderName,
			ProviderPaymentID: n.ProviderPaymentID,
			AmountGross:       n.AmountGross,
		}, nil)
		if err != nil {
			logging.Error("failed to mark order paid", err, fields)
			c.Status(http.StatusOK)
			return
		}
		fields["applied"] = res.Applied
		logging.LogKV("info", "payfast payment complete", fields)
		if res.Applied {
			h.afterPayment(ctx, res)
		}
	case n.PaymentStatus == payfast.StatusCancelled:
		if _, err := h.store.CancelOrder(ctx, order.ID, nil, nil, "payment cancelled at gateway"); err != nil &&
			!errors.Is(err, db.ErrInvalidTransition) {
			logging.Error("failed to cancel order", err, fields)
		}
	default:
		logging.LogKV("info", "payfast notification ignored", fields)
	}
	c.Status(http.StatusOK)
}

// afterPayment tells the buyer and anyone promoted that their data changed, and mails the receipt.
func (h *Handler) afterPayment(ctx context.Context, res *db.PaymentResult) {
	order := res.Order
	h.broker.Publish(order.UserID, events.ProfileUpdated)
	for _, p := range res.Promotions {
		if p.UserID != order.UserID {
			h.broker.Publish(p.UserID, events.ProfileUpdated)
		}
	}
	if res.Bonus != nil {
		h.broker.Publish(res.Bonus.UserID, events.ProfileUpdated)
	}
	if to, ok := h.recipient(ctx, order.UserID); ok {
		h.notifier.OrderPaid(ctx, to, order)
	}
}

// recipient loads the contact details of userID for notifications.
func (h *Handler) recipient(ctx context.Context, userID string) (services.Recipient, bool) {
	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil {
		logging.Error("failed to load notification recipient", err, map[string]interface{}{"user_id": userID})
		return services.Recipient{}, false
	}
	return services.Recipient{Email: profile.Email, FullName: profile.FullName, Phone: profile.Phone}, true
}
