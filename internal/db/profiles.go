package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const profileColumns = `p.id, u.email, p.full_name, p.phone, p.rank_name, p.personal_volume, p.group_volume,
	p.team_size, p.referral_code, p.upline_id, p.avatar_url,
	p.address_line1, p.address_line2, p.city, p.province, p.postal_code, p.country,
	p.created_at, p.updated_at`

func profileDest(p *models.Profile) []any {
	return []any{
		&p.ID, &p.Email, &p.FullName, &p.Phone, &p.RankName, &p.PersonalVolume, &p.GroupVolume,
		&p.TeamSize, &p.ReferralCode, &p.UplineID, &p.AvatarURL,
		&p.Address.Line1, &p.Address.Line2, &p.Address.City, &p.Address.Province, &p.Address.PostalCode, &p.Address.Country,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

// GetProfile returns the consultant profile of a user.
func (db *Database) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	return getProfile(ctx, db.Pool, userID)
}

func getProfile(ctx context.Context, q querier, userID string) (*models.Profile, error) {
	var p models.Profile
	err := q.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles p JOIN users u ON u.id = p.id WHERE p.id = $1`, userID).
		Scan(profileDest(&p)...)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// profileSetClauses turns the editable fields into SET fragments starting at $argIndex.
func profileSetClauses(req models.UpdateProfileRequest, argIndex int) ([]string, []any) {
	var setParts []string
	var args []any
	add := func(expr string, v any) {
		setParts = append(setParts, fmt.Sprintf(expr, argIndex))
		args = append(args, v)
		argIndex++
	}

	if req.FullName != nil {
		add("full_name = TRIM($%d)", *req.FullName)
	}
	if req.Phone != nil {
		add("phone = NULLIF(TRIM($%d), '')", *req.Phone)
	}
	if req.AvatarURL != nil {
		add("avatar_url = NULLIF(TRIM($%d), '')", *req.AvatarURL)
	}
	if a := req.Address; a != nil {
		add("address_line1 = TRIM($%d)", a.Line1)
		add("address_line2 = TRIM($%d)", a.Line2)
		add("city = TRIM($%d)", a.City)
		add("province = TRIM($%d)", a.Province)
		add("postal_code = TRIM($%d)", a.PostalCode)
		add("country = TRIM($%d)", a.Country)
	}
	return setParts, args
}

// UpdateProfile applies the consultant-editable fields and returns the fresh profile.
func (db *Database) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.Profile, error) {
	setParts, args := profileSetClauses(req, 1)
	if len(setParts) == 0 {
		return db.GetProfile(ctx, userID)
	}
	return db.applyProfileUpdate(ctx, userID, setParts, args)
}

// AdminUpdateCustomer edits a consultant, optionally overriding the rank.
func (db *Database) AdminUpdateCustomer(ctx context.Context, userID string, req models.AdminUpdateCustomerRequest) (*models.Profile, error) {
	setParts, args := profileSetClauses(req.UpdateProfileRequest, 1)
	if req.RankName != nil {
		name := strings.TrimSpace(*req.RankName)
		var exists bool
		if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ranks WHERE name = $1)`, name).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check rank: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: unknown rank %q", ErrInvalidInput, name)
		}
		setParts = append(setParts, fmt.Sprintf("rank_name = $%d", len(args)+1))
		args = append(args, name)
	}
	if len(setParts) == 0 {
		return db.GetProfile(ctx, userID)
	}
	return db.applyProfileUpdate(ctx, userID, setParts, args)
}

func (db *Database) applyProfileUpdate(ctx context.Context, userID string, setParts []string, args []any) (*models.Profile, error) {
	setParts = append(setParts, "updated_at = now()")
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetProfile(ctx, userID)
}

// CountDirectReferrals counts consultants whose upline is userID.
func (db *Database) CountDirectReferrals(ctx context.Context, userID string) (int, error) {
	var n int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE upline_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return n, nil
}

const customerSelect = `
	SELECT ` + profileColumns + `,
	       EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	               WHERE ur.user_id = p.id AND r.name = 'admin') AS is_admin,
	       COALESCE(os.order_count, 0) AS order_count,
	       COALESCE(os.total_spent, 0) AS total_spent
	FROM profiles p
	JOIN users u ON u.id = p.id
	LEFT JOIN (
		SELECT user_id, COUNT(*) AS order_count,
		       SUM(total) FILTER (WHERE status IN ('paid','processing','shipped','delivered')) AS total_spent
		FROM sales
		GROUP BY user_id
	) os ON os.user_id = p.id`

func scanCustomer(row pgx.Row) (*models.CustomerSummary, error) {
	var c models.CustomerSummary
	dest := append(profileDest(&c.Profile), &c.IsAdmin, &c.OrderCount, &c.TotalSpent)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCustomers returns a filtered, paginated page of consultants for the back-office.
func (db *Database) ListCustomers(ctx context.Context, params models.CustomerListParams) (*models.CustomerListResponse, error) {
	params.Normalize()

	var whereConditions []string
	var args []any
	argIndex := 1

	if s := strings.TrimSpace(params.Search); s != "" {
		whereConditions = append(whereConditions, fmt.Sprintf(`
			(LOWER(p.full_name) LIKE LOWER($%d) OR
			 LOWER(u.email) LIKE LOWER($%d) OR
			 LOWER(p.referral_code) LIKE LOWER($%d) OR
			 COALESCE(p.phone, '') LIKE $%d)`, argIndex, argIndex, argIndex, argIndex))
		args = append(args, "%"+s+"%")
		argIndex++
	}
	if params.Rank != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("p.rank_name = $%d", argIndex))
		args = append(args, params.Rank)
		argIndex++
	}

	whereSQL := ""
	if len(whereConditions) > 0 {
		whereSQL = " WHERE " + strings.Join(whereConditions, " AND ")
	}

	orderByExpr := "p.created_at"
	switch params.SortBy {
	case "full_name":
		orderByExpr = "p.full_name"
	case "email":
		orderByExpr = "u.email"
	case "personal_volume":
		orderByExpr = "p.personal_volume"
	case "group_volume":
		orderByExpr = "p.group_volume"
	case "team_size":
		orderByExpr = "p.team_size"
	case "order_count":
		orderByExpr = "order_count"
	case "total_spent":
		orderByExpr = "total_spent"
	}
	orderDir := "DESC"
	if params.SortOrder == "asc" {
		orderDir = "ASC"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM profiles p JOIN users u ON u.id = p.id` + whereSQL
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	query := customerSelect + whereSQL +
		fmt.Sprintf(" ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d", orderByExpr, orderDir, argIndex, argIndex+1)
	rows, err := db.Pool.Query(ctx, query, append(args, params.Limit, params.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []models.CustomerSummary{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over customers: %w", err)
	}

	return &models.CustomerListResponse{
		Customers:  customers,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: models.TotalPages(total, params.Limit),
	}, nil
}

// GetCustomer returns one consultant with back-office aggregates.
func (db *Database) GetCustomer(ctx context.Context, userID string) (*models.CustomerSummary, error) {
	c, err := scanCustomer(db.Pool.QueryRow(ctx, customerSelect+` WHERE p.id = $1`, userID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}
