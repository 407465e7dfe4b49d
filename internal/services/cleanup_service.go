package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/db"
	"github.com/Pixelkingsa/consultant-connect/internal/logging"
)

// Maintainer runs one housekeeping pass.
type Maintainer interface {
	RunMaintenance(ctx context.Context, cfg config.MaintenanceConfig, stepTimeout time.Duration) (*db.MaintenanceReport, error)
}

// CleanupService handles periodic cleanup of expired data
type CleanupService struct {
	db       Maintainer
	cfg      config.MaintenanceConfig
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(database Maintainer, cfg config.MaintenanceConfig) *CleanupService {
	return &CleanupService{
		db:       database,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup process
func (c *CleanupService) Start() {
	log.Printf("[CLEANUP] Starting cleanup service with %v interval", c.cfg.Interval)

	ticker := time.NewTicker(c.cfg.Interval)
	go func() {
		defer close(c.done)
		c.RunOnce()
		for {
			select {
			case <-ticker.C:
				c.RunOnce()
			case <-c.stopChan:
				ticker.Stop()
				log.Println("[CLEANUP] Cleanup service stopped")
				return
			}
		}
	}()
}

// Stop stops the cleanup service and waits for a running pass to finish.
func (c *CleanupService) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.done
}

// RunOnce performs a single cleanup pass.
func (c *CleanupService) RunOnce() *db.MaintenanceReport {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := c.db.RunMaintenance(ctx, c.cfg, 30*time.Second)
	if err != nil {
		logging.Error("maintenance pass failed", err, nil)
	}
	if report != nil {
		logging.LogKV("info", "maintenance pass", map[string]interface{}{
			"expired_refresh_tokens": report.ExpiredRefreshTokens,
			"abandoned_cart_items":   report.AbandonedCartItems,
			"expired_orders":         report.ExpiredOrders,
		})
	}
	return report
}
