package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

// GetCartItems returns the user's cart rows with their products, oldest first.
func (db *Database) GetCartItems(ctx context.Context, userID string) ([]models.CartItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at, `+productColumns+`
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC, c.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		var p models.Product
		dest := append([]any{&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt}, productDest(&p)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Product = &p
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over cart: %w", err)
	}
	return items, nil
}

// lockSellableProduct locks a product row for the rest of the transaction, so
// concurrent adds of one product serialize, and rejects missing or inactive products.
func lockSellableProduct(ctx context.Context, tx pgx.Tx, productID string) (*models.Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1 FOR UPDATE`, productID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product is not available", ErrNotFound)
	}
	return p, nil
}

// AddCartItem adds quantity to the cart line, creating it when needed. The
// resulting quantity may not exceed stock.
func (db *Database) AddCartItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	return db.withTx(ctx, func(tx pgx.Tx) error {
		p, err := lockSellableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		var current int
		err = tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2 FOR UPDATE`, userID, productID).Scan(&current)
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("failed to load cart item: %w", err)
		}
		if current+quantity > p.Stock {
			return fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, p.Stock, p.Name)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		`, userID, productID, quantity)
		if err != nil {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
		return nil
	})
}

// SetCartItemQuantity sets the quantity of an existing line. Zero removes it.
func (db *Database) SetCartItemQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if quantity == 0 {
		return db.RemoveCartItem(ctx, userID, productID)
	}
	return db.withTx(ctx, func(tx pgx.Tx) error {
		p, err := lockSellableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if quantity > p.Stock {
			return fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, p.Stock, p.Name)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE cart_items SET quantity = $3, updated_at = now()
			WHERE user_id = $1 AND product_id = $2
		`, userID, productID, quantity)
		if err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RemoveCartItem deletes one cart line.
func (db *Database) RemoveCartItem(ctx context.Context, userID, productID string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCart empties the user's cart.
func (db *Database) ClearCart(ctx context.Context, userID string) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// PurgeAbandonedCarts deletes cart lines untouched for longer than olderThan.
func (db *Database) PurgeAbandonedCarts(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM cart_items WHERE updated_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge abandoned carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
