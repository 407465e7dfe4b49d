package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const productColumns = `p.id, p.name, p.description, p.price, p.vp, p.category, p.subcategory,
	p.stock, p.image_url, p.is_active, p.created_at, p.updated_at`

func productDest(p *models.Product) []any {
	return []any{&p.ID, &p.Name, &p.Description, &p.Price, &p.VP, &p.Category, &p.Subcategory,
		&p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(productDest(&p)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns a filtered, paginated catalog page.
func (db *Database) ListProducts(ctx context.Context, params models.ProductListParams) (*models.ProductListResponse, error) {
	params.Normalize()

	var whereConditions []string
	var args []any
	argIndex := 1

	if !params.IncludeInactive {
		whereConditions = append(whereConditions, "p.is_active = true")
	}
	if params.Category != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("LOWER(p.category) = LOWER($%d)", argIndex))
		args = append(args, params.Category)
		argIndex++
	}
	if params.Subcategory != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("LOWER(p.subcategory) = LOWER($%d)", argIndex))
		args = append(args, params.Subcategory)
		argIndex++
	}
	if s := strings.TrimSpace(params.Search); s != "" {
		whereConditions = append(whereConditions, fmt.Sprintf(
			"(LOWER(p.name) LIKE LOWER($%d) OR LOWER(p.description) LIKE LOWER($%d))", argIndex, argIndex))
		args = append(args, "%"+s+"%")
		argIndex++
	}

	whereSQL := ""
	if len(whereConditions) > 0 {
		whereSQL = " WHERE " + strings.Join(whereConditions, " AND ")
	}

	orderByExpr := "p.created_at"
	switch params.SortBy {
	case "name":
		orderByExpr = "p.name"
	case "price":
		orderByExpr = "p.price"
	case "vp":
		orderByExpr = "p.vp"
	case "stock":
		orderByExpr = "p.stock"
	}
	orderDir := "DESC"
	if params.SortOrder == "asc" {
		orderDir = "ASC"
	}

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products p` + whereSQL +
		fmt.Sprintf(" ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d", orderByExpr, orderDir, argIndex, argIndex+1)
	rows, err := db.Pool.Query(ctx, query, append(args, params.Limit, params.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over products: %w", err)
	}

	return &models.ProductListResponse{
		Products:   products,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: models.TotalPages(total, params.Limit),
	}, nil
}

// GetProduct returns a product by id, active or not.
func (db *Database) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := scanProduct(db.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListCategories groups products by category with their subcategories.
func (db *Database) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT category, subcategory, COUNT(*)
		FROM products
		WHERE category <> '' AND (is_active OR $1)
		GROUP BY category, subcategory
		ORDER BY category, subcategory
	`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	byName := map[string]*models.Category{}
	var order []string
	for rows.Next() {
		var cat, sub string
		var n int
		if err := rows.Scan(&cat, &sub, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c, ok := byName[cat]
		if !ok {
			c = &models.Category{Name: cat, Subcategories: []string{}}
			byName[cat] = c
			order = append(order, cat)
		}
		c.ProductCount += n
		if sub != "" {
			c.Subcategories = append(c.Subcategories, sub)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over categories: %w", err)
	}

	sort.Strings(order)
	categories := make([]models.Category, 0, len(order))
	for _, name := range order {
		categories = append(categories, *byName[name])
	}
	return categories, nil
}

// CreateProduct inserts a catalog entry.
func (db *Database) CreateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO products AS p (name, description, price, vp, category, subcategory, stock, image_url, is_active)
		VALUES (TRIM($1), $2, $3, $4, TRIM($5), TRIM($6), $7, $8, $9)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price, p.VP, p.Category, p.Subcategory, p.Stock, p.ImageURL, p.IsActive)
	created, err := scanProduct(row)
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: price, vp and stock must not be negative", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

// UpdateProduct replaces the editable fields of a product.
func (db *Database) UpdateProduct(ctx context.Context, id string, p models.Product) (*models.Product, error) {
	row := db.Pool.QueryRow(ctx, `
		UPDATE products AS p SET
			name = TRIM($2), description = $3, price = $4, vp = $5, category = TRIM($6),
			subcategory = TRIM($7), stock = $8, image_url = COALESCE($9, p.image_url), is_active = $10,
			updated_at = now()
		WHERE p.id = $1
		RETURNING `+productColumns,
		id, p.Name, p.Description, p.Price, p.VP, p.Category, p.Subcategory, p.Stock, p.ImageURL, p.IsActive)
	updated, err := scanProduct(row)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: price, vp and stock must not be negative", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// SetProductImage stores the uploaded image URL.
func (db *Database) SetProductImage(ctx context.Context, id, imageURL string) (*models.Product, error) {
	p, err := scanProduct(db.Pool.QueryRow(ctx, `
		UPDATE products AS p SET image_url = $2, updated_at = now()
		WHERE p.id = $1
		RETURNING `+productColumns, id, imageURL))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product image: %w", err)
	}
	return p, nil
}

// DeleteProduct removes a product. Cart rows cascade; order snapshots keep the name.
func (db *Database) DeleteProduct(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
