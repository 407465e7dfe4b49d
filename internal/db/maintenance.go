package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
)

// MaintenanceReport counts the rows touched by one housekeeping run.
type MaintenanceReport struct {
	ExpiredRefreshTokens int64 `json:"expired_refresh_tokens"`
	AbandonedCartItems   int64 `json:"abandoned_cart_items"`
	ExpiredOrders        int64 `json:"expired_orders"`
}

// RunMaintenance prunes refresh tokens, abandoned carts and unpaid orders. Each step runs
// under its own timeout of stepTimeout.
func (db *Database) RunMaintenance(ctx context.Context, cfg config.MaintenanceConfig, stepTimeout time.Duration) (*MaintenanceReport, error) {
	var report MaintenanceReport

	run := func(name string, fn func(context.Context) (int64, error)) (int64, error) {
		c, cancel := context.WithTimeout(ctx, stepTimeout)
		defer cancel()
		n, err := fn(c)
		if err != nil {
			return n, fmt.Errorf("%s: %w", name, err)
		}
		return n, nil
	}

	var err error
	if report.ExpiredRefreshTokens, err = run("refresh tokens", db.CleanupExpiredRefreshTokens); err != nil {
		return &report, err
	}
	if cfg.AbandonedCartAge > 0 {
		report.AbandonedCartItems, err = run("abandoned carts", func(c context.Context) (int64, error) {
			return db.PurgeAbandonedCarts(c, cfg.AbandonedCartAge)
		})
		if err != nil {
			return &report, err
		}
	}
	if cfg.PendingOrderTTL > 0 {
		report.ExpiredOrders, err = run("unpaid orders", func(c context.Context) (int64, error) {
			return db.ExpireUnpaidOrders(c, cfg.PendingOrderTTL)
		})
		if err != nil {
			return &report, err
		}
	}
	return &report, nil
}
