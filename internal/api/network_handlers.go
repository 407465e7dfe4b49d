package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/network"
)

// GetNetwork returns the caller's downline as a nested tree
func (h *Handler) GetNetwork(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	h.respondNetwork(c, userID)
}

// GetUpline returns the caller's sponsors, nearest first
func (h *Handler) GetUpline(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	upline, err := h.store.GetUpline(ctx, userID)
	if err != nil {
		respondError(c, "Failed to get upline", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upline": upline})
}

// respondNetwork renders the tree under rootID, honouring the depth query parameter.
func (h *Handler) respondNetwork(c *gin.Context, rootID string) {
	requested, _ := strconv.Atoi(c.Query("depth"))
	depth := network.ClampDepth(requested, h.cfg.DefaultNetworkDepth, h.cfg.MaxNetworkDepth)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	members, err := h.store.GetDownline(ctx, rootID, depth)
	if err != nil {
		respondError(c, "Failed to get network", err)
		return
	}
	root := network.BuildTree(rootID, members)
	if root == nil {
		respondError(c, "Consultant not found", db.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, network.Tree{Root: root, Stats: network.ComputeStats(root)})
}
