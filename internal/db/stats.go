package db

import (
	"context"
	"fmt"
	"time"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const revenueStatuses = `('paid', 'processing', 'shipped', 'delivered')`

// GetAdminStatistics gathers the figures for the back-office dashboard.
func (db *Database) GetAdminStatistics(ctx context.Context) (*models.AdminStatistics, error) {
	stats := &models.AdminStatistics{
		OrdersByStatus: map[models.OrderStatus]int{},
		DailyStats:     []models.DailyOrderStats{},
		TopProducts:    []models.ProductOrderStats{},
	}

	err := db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(total), 0) FROM sales WHERE status IN `+revenueStatuses+`),
			(SELECT COUNT(*) FROM sales),
			(SELECT COUNT(*) FROM profiles),
			(SELECT COUNT(*) FROM transactions WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status IN ('pending', 'approved')),
			(SELECT COALESCE(SUM(amount), 0) FROM bonuses)
	`).Scan(&stats.TotalRevenue, &stats.TotalOrders, &stats.ConsultantCount,
		&stats.PendingWithdrawals, &stats.PendingPayoutTotal, &stats.TotalCommission)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM sales GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order status counts: %w", err)
	}
	for rows.Next() {
		var status models.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order status count: %w", err)
		}
		stats.OrdersByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order status counts: %w", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	rows, err = db.Pool.Query(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE status IN `+revenueStatuses+` AND created_at >= $1
		GROUP BY 1
		ORDER BY 1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	for rows.Next() {
		var d models.DailyOrderStats
		if err := rows.Scan(&d.Date, &d.OrderCount, &d.Revenue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats.DailyStats = append(stats.DailyStats, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over daily stats: %w", err)
	}

	rows, err = db.Pool.Query(ctx, `
		SELECT si.product_name, SUM(si.quantity), SUM(si.line_total)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status IN `+revenueStatuses+`
		GROUP BY si.product_name
		ORDER BY SUM(si.line_total) DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.ProductOrderStats
		if err := rows.Scan(&p.ProductName, &p.UnitsSold, &p.TotalRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		stats.TopProducts = append(stats.TopProducts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over top products: %w", err)
	}
	return stats, nil
}
