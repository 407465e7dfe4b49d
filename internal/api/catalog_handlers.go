package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/storage"
)

// ListProducts returns a catalog page. Inactive products are only listed for admins.
func (h *Handler) ListProducts(c *gin.Context) {
	var params models.ProductListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid query parameters",
			Message: err.Error(),
		})
		return
	}
	if !IsAdmin(c) {
		params.IncludeInactive = false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.store.ListProducts(ctx, params)
	if err != nil {
		respondError(c, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetProduct returns one product. Inactive products are hidden from non-admins.
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	product, err := h.store.GetProduct(ctx, id)
	if err == nil && !product.IsActive && !IsAdmin(c) {
		err = db.ErrNotFound
	}
	if err != nil {
		respondError(c, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListCategories returns the categories of the catalog with their subcategories.
func (h *Handler) ListCategories(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	categories, err := h.store.ListCategories(ctx, IsAdmin(c) && c.Query("include_inactive") == "true")
	if err != nil {
		respondError(c, "Failed to get categories", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateProduct adds a catalog entry
func (h *Handler) CreateProduct(c *gin.Context) {
	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	product, err := h.store.CreateProduct(ctx, req.ToProduct())
	if err != nil {
		respondError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct replaces the editable fields of a product
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req models.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	product, err := h.store.UpdateProduct(ctx, id, req.ToProduct())
	if err != nil {
		respondError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.store.DeleteProduct(ctx, id); err != nil {
		respondError(c, "Failed to delete product", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "Product deleted successfully"})
}

// UploadProductImage stores the multipart "image" field and saves its URL on the product.
func (h *Handler) UploadProductImage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), uploadTimeout)
	defer cancel()

	if _, err := h.store.GetProduct(ctx, id); err != nil {
		respondError(c, "Product not found", err)
		return
	}
	url, ok := h.saveUpload(ctx, c, "products/"+id)
	if !ok {
		return
	}
	product, err := h.store.SetProductImage(ctx, id, url)
	if err != nil {
		respondError(c, "Failed to update product image", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Image uploaded successfully",
		Data:    product,
	})
}

// saveUpload reads the "image" form file and stores it, writing the error response itself.
func (h *Handler) saveUpload(ctx context.Context, c *gin.Context, prefix string) (string, bool) {
	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Uploads unavailable",
			Message: "no image storage configured",
		})
		return "", false
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "No image file provided",
			Message: "Please provide an image file in the 'image' field",
		})
		return "", false
	}

	url, err := h.images.SaveImage(ctx, prefix, fh)
	if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrInvalidType) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid image",
			Message: err.Error(),
		})
		return "", false
	}
	if err != nil {
		respondError(c, "Failed to upload image", err)
		return "", false
	}
	return url, true
}
