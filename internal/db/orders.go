package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/compensation"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const orderColumns = `s.id, s.user_id, s.status, s.subtotal, s.tax, s.total, s.total_vp, s.payment_reference,
	s.payment_provider, s.provider_payment_id,
	s.address_line1, s.address_line2, s.city, s.province, s.postal_code, s.country,
	s.paid_at, s.created_at, s.updated_at`

func orderDest(o *models.Order) []any {
	return []any{&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Total, &o.TotalVP, &o.PaymentReference,
		&o.PaymentProvider, &o.ProviderPaymentID,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City, &o.ShippingAddress.Province,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaidAt, &o.CreatedAt, &o.UpdatedAt}
}

// Promotion records a rank change caused by a payment.
type Promotion struct {
	UserID string `json:"user_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// PaymentResult is the outcome of MarkPaid.
type PaymentResult struct {
	Order      *models.Order
	Applied    bool // false when the order had already been paid
	Promotions []Promotion
	Bonus      *models.Bonus
}

// Checkout turns the user's cart into a pending_payment order. Cart rows and products
// are locked, stock is decremented and the cart is cleared, all in one transaction.
func (db *Database) Checkout(ctx context.Context, userID string, shipping *models.Address, taxRate float64) (*models.Order, error) {
	var orderID string
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT c.quantity, `+productColumns+`
			FROM cart_items c
			JOIN products p ON p.id = c.product_id
			WHERE c.user_id = $1
			ORDER BY p.id
			FOR UPDATE OF c, p
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}
		var items []models.CartItem
		for rows.Next() {
			var item models.CartItem
			var p models.Product
			if err := rows.Scan(append([]any{&item.Quantity}, productDest(&p)...)...); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			item.ProductID = p.ID
			item.Product = &p
			items = append(items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating over cart: %w", err)
		}

		if len(items) == 0 {
			return ErrEmptyCart
		}
		for _, item := range items {
			if !item.Product.IsActive {
				return fmt.Errorf("%w: %s is no longer available", ErrConflict, item.Product.Name)
			}
			if item.Quantity > item.Product.Stock {
				return fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, item.Product.Stock, item.Product.Name)
			}
		}

		addr := models.Address{}
		if shipping != nil && !shipping.IsZero() {
			addr = *shipping
		} else if profile, err := getProfile(ctx, tx, userID); err == nil {
			addr = profile.Address
		}

		totals := models.ComputeCartTotals(items, taxRate)
		err = tx.QueryRow(ctx, `
			INSERT INTO sales (user_id, status, subtotal, tax, total, total_vp, payment_reference,
			                   address_line1, address_line2, city, province, postal_code, country)
			VALUES ($1, 'pending_payment', $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, userID, totals.Subtotal, totals.Tax, totals.Total, totals.TotalVP, uuid.NewString(),
			addr.Line1, addr.Line2, addr.City, addr.Province, addr.PostalCode, addr.Country).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range items {
			p := item.Product
			if _, err := tx.Exec(ctx, `
				INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, unit_vp, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, orderID, p.ID, p.Name, item.Quantity, p.Price, p.VP, item.LineTotal()); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			tag, err := tx.Exec(ctx, `
				UPDATE products SET stock = stock - $2, updated_at = now()
				WHERE id = $1 AND stock >= $2
			`, p.ID, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to reserve stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return recordStatus(ctx, tx, orderID, nil, models.OrderStatusPendingPayment, &userID, "checkout")
	})
	if err != nil {
		return nil, err
	}
	return db.GetOrder(ctx, orderID)
}

func recordStatus(ctx context.Context, q querier, orderID string, old *models.OrderStatus, next models.OrderStatus, changedBy *string, reason string) error {
	var oldVal *string
	if old != nil {
		s := string(*old)
		oldVal = &s
	}
	_, err := q.Exec(ctx, `
		INSERT INTO order_status_history (sale_id, old_status, new_status, changed_by, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, oldVal, string(next), changedBy, reason)
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

// GetOrder returns an order with its items.
func (db *Database) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return getOrder(ctx, db.Pool, `s.id = $1`, id)
}

// GetOrderByReference finds an order by its payment reference.
func (db *Database) GetOrderByReference(ctx context.Context, ref string) (*models.Order, error) {
	return getOrder(ctx, db.Pool, `s.payment_reference = $1`, ref)
}

func getOrder(ctx context.Context, q querier, where string, arg any) (*models.Order, error) {
	var o models.Order
	err := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales s WHERE `+where, arg).Scan(orderDest(&o)...)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	items, err := getOrderItems(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func getOrderItems(ctx context.Context, q querier, orderID string) ([]models.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, unit_vp, line_total
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY product_name, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.UnitVP, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order items: %w", err)
	}
	return items, nil
}

// ListUserOrders returns a page of the user's orders, newest first, without items.
func (db *Database) ListUserOrders(ctx context.Context, userID string, params models.ListParams) ([]models.Order, int, error) {
	params.Normalize()

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM sales s
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, s.id
		LIMIT $2 OFFSET $3
	`, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over orders: %w", err)
	}
	return orders, total, nil
}

// MarkPaid settles a pending order: the buyer earns PV and GV, every upline earns GV,
// ranks are re-evaluated and the direct upline is paid a commission. Calling it again
// for an order that is already paid changes nothing and reports Applied=false.
func (db *Database) MarkPaid(ctx context.Context, orderID string, payment *models.PaymentConfirmation, changedBy *string) (*PaymentResult, error) {
	result := &PaymentResult{}
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var provider, providerID *string
		if payment != nil {
			if payment.Provider != "" {
				provider = &payment.Provider
			}
			if payment.ProviderPaymentID != "" {
				providerID = &payment.ProviderPaymentID
			}
		}

		var buyerID string
		var subtotal, totalVP float64
		err := tx.QueryRow(ctx, `
			UPDATE sales SET status = 'paid', paid_at = now(),
				payment_provider = COALESCE($2, payment_provider),
				provider_payment_id = COALESCE($3, provider_payment_id),
				updated_at = now()
			WHERE id = $1 AND status = 'pending_payment'
			RETURNING user_id, subtotal, total_vp
		`, orderID, provider, providerID).Scan(&buyerID, &subtotal, &totalVP)
		if isNoRows(err) {
			var status models.OrderStatus
			err := tx.QueryRow(ctx, `SELECT status FROM sales WHERE id = $1`, orderID).Scan(&status)
			if isNoRows(err) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to load order status: %w", err)
			}
			if status.CountsAsRevenue() {
				return nil
			}
			return fmt.Errorf("%w: %s -> paid", ErrInvalidTransition, status)
		}
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		result.Applied = true

		if _, err := tx.Exec(ctx, `
			UPDATE profiles SET personal_volume = personal_volume + $2, group_volume = group_volume + $2, updated_at = now()
			WHERE id = $1
		`, buyerID, totalVP); err != nil {
			return fmt.Errorf("failed to credit buyer volume: %w", err)
		}
		if _, err := tx.Exec(ctx, ancestorsCTE+`
			UPDATE profiles SET group_volume = group_volume + $2, updated_at = now()
			WHERE id IN (SELECT id FROM chain)
		`, buyerID, totalVP); err != nil {
			return fmt.Errorf("failed to credit upline volume: %w", err)
		}

		if result.Promotions, err = reevaluateRanks(ctx, tx, buyerID); err != nil {
			return err
		}
		if result.Bonus, err = payDirectBonus(ctx, tx, buyerID, orderID, subtotal); err != nil {
			return err
		}

		reason := "payment confirmed"
		if provider != nil {
			reason += " by " + *provider
		}
		old := models.OrderStatusPendingPayment
		return recordStatus(ctx, tx, orderID, &old, models.OrderStatusPaid, changedBy, reason)
	})
	if err != nil {
		return nil, err
	}

	if result.Order, err = db.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return result, nil
}

// reevaluateRanks promotes the buyer and any ancestor whose volumes now qualify.
func reevaluateRanks(ctx context.Context, tx pgx.Tx, buyerID string) ([]Promotion, error) {
	ranks, err := listRanks(ctx, tx, false)
	if err != nil {
		return nil, err
	}
	if len(ranks) == 0 {
		return nil, nil
	}

	rows, err := tx.Query(ctx, ancestorsCTE+`
		SELECT p.id, p.rank_name, p.personal_volume, p.group_volume
		FROM profiles p
		WHERE p.id = $1 OR p.id IN (SELECT id FROM chain)
		FOR UPDATE OF p
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load volumes: %w", err)
	}
	var promotions []Promotion
	for rows.Next() {
		var id, current string
		var pv, gv float64
		if err := rows.Scan(&id, &current, &pv, &gv); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan volumes: %w", err)
		}
		if next := compensation.Evaluate(ranks, current, pv, gv); next != nil && next.Name != current {
			promotions = append(promotions, Promotion{UserID: id, From: current, To: next.Name})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over volumes: %w", err)
	}

	for _, p := range promotions {
		if _, err := tx.Exec(ctx, `UPDATE profiles SET rank_name = $2, updated_at = now() WHERE id = $1`, p.UserID, p.To); err != nil {
			return nil, fmt.Errorf("failed to update rank: %w", err)
		}
	}
	return promotions, nil
}

// payDirectBonus credits the buyer's direct upline at the upline's commission rate.
func payDirectBonus(ctx context.Context, tx pgx.Tx, buyerID, orderID string, subtotal float64) (*models.Bonus, error) {
	var uplineID, uplineName string
	var rate float64
	err := tx.QueryRow(ctx, `
		SELECT up.id, up.full_name, COALESCE(r.commission_rate, 0)
		FROM profiles b
		JOIN profiles up ON up.id = b.upline_id
		LEFT JOIN ranks r ON r.name = up.rank_name
		WHERE b.id = $1
	`, buyerID).Scan(&uplineID, &uplineName, &rate)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load upline: %w", err)
	}

	amount := compensation.Commission(subtotal, rate)
	if amount <= 0 {
		return nil, nil
	}

	b := models.Bonus{
		UserID:       uplineID,
		SourceUserID: &buyerID,
		SaleID:       &orderID,
		Amount:       amount,
		BonusType:    models.BonusTypeDirect,
		Description:  fmt.Sprintf("%.2f%% direct commission on order %s", rate, strings.ToUpper(orderID[:min(8, len(orderID))])),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO bonuses (user_id, source_user_id, sale_id, amount, bonus_type, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sale_id, bonus_type) WHERE sale_id IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`, b.UserID, b.SourceUserID, b.SaleID, b.Amount, b.BonusType, b.Description).Scan(&b.ID, &b.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record bonus: %w", err)
	}
	return &b, nil
}

// CancelOrder cancels a pending_payment order and returns its stock. When ownerID is
// set, orders of other users are reported as not found.
func (db *Database) CancelOrder(ctx context.Context, orderID string, ownerID, changedBy *string, reason string) (*models.Order, error) {
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var status models.OrderStatus
		var userID string
		err := tx.QueryRow(ctx, `SELECT status, user_id FROM sales WHERE id = $1 FOR UPDATE`, orderID).Scan(&status, &userID)
		if isNoRows(err) || (err == nil && ownerID != nil && *ownerID != userID) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if !status.CanTransitionTo(models.OrderStatusCancelled) {
			return fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, status)
		}

		if _, err := tx.Exec(ctx, `UPDATE sales SET status = 'cancelled', updated_at = now() WHERE id = $1`, orderID); err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE products p SET stock = p.stock + si.qty, updated_at = now()
			FROM (SELECT product_id, SUM(quantity) AS qty FROM sale_items WHERE sale_id = $1 AND product_id IS NOT NULL GROUP BY product_id) si
			WHERE p.id = si.product_id
		`, orderID); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
		if reason == "" {
			reason = "cancelled"
		}
		return recordStatus(ctx, tx, orderID, &status, models.OrderStatusCancelled, changedBy, reason)
	})
	if err != nil {
		return nil, err
	}
	return db.GetOrder(ctx, orderID)
}

// UpdateOrderStatus moves an order along the state machine on behalf of an admin.
func (db *Database) UpdateOrderStatus(ctx context.Context, orderID string, next models.OrderStatus, changedBy *string, reason string) (*models.Order, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	switch next {
	case models.OrderStatusPaid:
		res, err := db.MarkPaid(ctx, orderID, &models.PaymentConfirmation{Provider: "manual"}, changedBy)
		if err != nil {
			return nil, err
		}
		if !res.Applied {
			return nil, fmt.Errorf("%w: %s -> paid", ErrInvalidTransition, res.Order.Status)
		}
		return res.Order, nil
	case models.OrderStatusCancelled:
		return db.CancelOrder(ctx, orderID, nil, changedBy, reason)
	}

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var status models.OrderStatus
		err := tx.QueryRow(ctx, `SELECT status FROM sales WHERE id = $1 FOR UPDATE`, orderID).Scan(&status)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if !status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, next)
		}
		if _, err := tx.Exec(ctx, `UPDATE sales SET status = $2, updated_at = now() WHERE id = $1`, orderID, string(next)); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return recordStatus(ctx, tx, orderID, &status, next, changedBy, reason)
	})
	if err != nil {
		return nil, err
	}
	return db.GetOrder(ctx, orderID)
}

// AdminListOrders returns a filtered, paginated page of all orders.
func (db *Database) AdminListOrders(ctx context.Context, req models.AdminOrderListRequest) (*models.AdminOrderListResponse, error) {
	req.Normalize()

	var whereConditions []string
	var args []any
	argIndex := 1

	if req.UserID != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("s.user_id = $%d", argIndex))
		args = append(args, req.UserID)
		argIndex++
	}
	if req.Status != "" {
		if !models.OrderStatus(req.Status).IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
		}
		whereConditions = append(whereConditions, fmt.Sprintf("s.status = $%d", argIndex))
		args = append(args, req.Status)
		argIndex++
	}
	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("%w: date_from must be YYYY-MM-DD", ErrInvalidInput)
		}
		whereConditions = append(whereConditions, fmt.Sprintf("s.created_at >= $%d", argIndex))
		args = append(args, from)
		argIndex++
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return nil, fmt.Errorf("%w: date_to must be YYYY-MM-DD", ErrInvalidInput)
		}
		whereConditions = append(whereConditions, fmt.Sprintf("s.created_at < $%d", argIndex))
		args = append(args, to.AddDate(0, 0, 1))
		argIndex++
	}
	if s := strings.TrimSpace(req.Search); s != "" {
		whereConditions = append(whereConditions, fmt.Sprintf(`
			(s.id::text LIKE $%d OR LOWER(s.payment_reference) LIKE LOWER($%d) OR
			 LOWER(u.email) LIKE LOWER($%d) OR LOWER(p.full_name) LIKE LOWER($%d))`,
			argIndex, argIndex, argIndex, argIndex))
		args = append(args, "%"+s+"%")
		argIndex++
	}

	whereSQL := ""
	if len(whereConditions) > 0 {
		whereSQL = " WHERE " + strings.Join(whereConditions, " AND ")
	}

	orderByExpr := "s.created_at"
	switch req.SortBy {
	case "total":
		orderByExpr = "s.total"
	case "status":
		orderByExpr = "s.status"
	case "updated_at":
		orderByExpr = "s.updated_at"
	}
	orderDir := "DESC"
	if req.SortOrder == "asc" {
		orderDir = "ASC"
	}

	from := ` FROM sales s JOIN users u ON u.id = s.user_id LEFT JOIN profiles p ON p.id = s.user_id`

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*)`+from+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + `, u.email, COALESCE(p.full_name, ''),
		(SELECT COALESCE(SUM(quantity), 0) FROM sale_items si WHERE si.sale_id = s.id)` +
		from + whereSQL +
		fmt.Sprintf(" ORDER BY %s %s, s.id LIMIT $%d OFFSET $%d", orderByExpr, orderDir, argIndex, argIndex+1)
	rows, err := db.Pool.Query(ctx, query, append(args, req.Limit, req.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.AdminOrderResponse{}
	for rows.Next() {
		var o models.AdminOrderResponse
		if err := rows.Scan(append(orderDest(&o.Order), &o.UserEmail, &o.UserName, &o.ItemCount)...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over orders: %w", err)
	}

	return &models.AdminOrderListResponse{
		Orders:     orders,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: models.TotalPages(total, req.Limit),
	}, nil
}

// AdminGetOrder returns an order with buyer details, items and status history.
func (db *Database) AdminGetOrder(ctx context.Context, id string) (*models.AdminOrderDetailResponse, error) {
	var o models.AdminOrderResponse
	err := db.Pool.QueryRow(ctx, `
		SELECT `+orderColumns+`, u.email, COALESCE(p.full_name, '')
		FROM sales s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN profiles p ON p.id = s.user_id
		WHERE s.id = $1
	`, id).Scan(append(orderDest(&o.Order), &o.UserEmail, &o.UserName)...)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := getOrderItems(ctx, db.Pool, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		o.ItemCount += it.Quantity
	}

	history, err := db.GetOrderStatusHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.AdminOrderDetailResponse{Order: o, Items: items, StatusHistory: history}, nil
}

// GetOrderStatusHistory returns the audit trail of an order, oldest first.
func (db *Database) GetOrderStatusHistory(ctx context.Context, orderID string) ([]models.OrderStatusChange, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, sale_id, old_status, new_status, changed_by, reason, created_at
		FROM order_status_history
		WHERE sale_id = $1
		ORDER BY created_at ASC, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusChange{}
	for rows.Next() {
		var h models.OrderStatusChange
		if err := rows.Scan(&h.ID, &h.OrderID, &h.OldStatus, &h.NewStatus, &h.ChangedBy, &h.Reason, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over status history: %w", err)
	}
	return history, nil
}

// ExpireUnpaidOrders cancels orders left in pending_payment longer than olderThan.
func (db *Database) ExpireUnpaidOrders(ctx context.Context, olderThan time.Duration) (int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id FROM sales
		WHERE status = 'pending_payment' AND created_at < $1
		ORDER BY created_at
		LIMIT 500
	`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to query unpaid orders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, fmt.Errorf("failed to collect unpaid orders: %w", err)
	}

	var expired int64
	for _, id := range ids {
		_, err := db.CancelOrder(ctx, id, nil, nil, "payment not received in time")
		if err != nil {
			// paid or cancelled since the query ran
			if isTransitionOrMissing(err) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}
