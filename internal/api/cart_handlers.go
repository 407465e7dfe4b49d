package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// GetCart returns the caller's cart with its totals
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	h.respondCart(ctx, c, userID, "Cart retrieved successfully")
}

func (h *Handler) respondCart(ctx context.Context, c *gin.Context, userID, message string) {
	items, err := h.store.GetCartItems(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get cart items", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: message,
		Data: models.CartResponse{
			Items:      items,
			CartTotals: models.ComputeCartTotals(items, h.cfg.TaxRate),
		},
	})
}

// AddToCart adds a product to the caller's cart, accumulating quantity.
func (h *Handler) AddToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	if _, err := uuid.Parse(req.ProductID); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid ID format",
			Message: "product_id must be a valid UUID",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.AddCartItem(ctx, userID, req.ProductID, req.Quantity); err != nil {
		cartError(c, "Failed to add item to cart", err)
		return
	}
	h.respondCart(ctx, c, userID, "Item added to cart successfully")
}

// UpdateCartItem sets the quantity of a cart line; zero removes it.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}

	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.SetCartItemQuantity(ctx, userID, productID, *req.Quantity); err != nil {
		cartError(c, "Failed to update cart item", err)
		return
	}
	h.respondCart(ctx, c, userID, "Cart updated successfully")
}

// RemoveFromCart deletes one cart line
func (h *Handler) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "product_id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.RemoveCartItem(ctx, userID, productID); err != nil {
		cartError(c, "Failed to remove item from cart", err)
		return
	}
	h.respondCart(ctx, c, userID, "Item removed from cart successfully")
}

// ClearCart empties the caller's cart
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.ClearCart(ctx, userID); err != nil {
		respondError(c, "Failed to clear cart", err)
		return
	}
	h.respondCart(ctx, c, userID, "Cart cleared successfully")
}

// cartError reports stock shortfalls as validation errors; checkout reports them as conflicts.
func cartError(c *gin.Context, title string, err error) {
	if errors.Is(err, db.ErrInsufficientStock) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Insufficient stock",
			Message: err.Error(),
		})
		return
	}
	respondError(c, title, err)
}
