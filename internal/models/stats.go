package models

// AdminStatistics feeds the back-office dashboard
type AdminStatistics struct {
	TotalRevenue       float64             `json:"total_revenue"`
	TotalOrders        int                 `json:"total_orders"`
	OrdersByStatus     map[OrderStatus]int `json:"orders_by_status"`
	ConsultantCount    int                 `json:"consultant_count"`
	PendingWithdrawals int                 `json:"pending_withdrawals"`
	PendingPayoutTotal float64             `json:"pending_payout_total"`
	TotalCommission    float64             `json:"total_commission"`
	DailyStats         []DailyOrderStats   `json:"daily_stats"`
	TopProducts        []ProductOrderStats `json:"top_products"`
}

// DailyOrderStats represents daily order statistics
type DailyOrderStats struct {
	Date       string  `json:"date"`
	OrderCount int     `json:"order_count"`
	Revenue    float64 `json:"revenue"`
}

// ProductOrderStats represents product order statistics
type ProductOrderStats struct {
	ProductName  string  `json:"product_name"`
	UnitsSold    int     `json:"units_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}
