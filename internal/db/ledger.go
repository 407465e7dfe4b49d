package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const withdrawalColumns = `t.id, t.user_id, t.amount, t.status, t.bank_name, t.account_holder, t.account_number,
	t.notes, t.processed_by, t.processed_at, t.created_at, t.updated_at`

func withdrawalDest(w *models.Withdrawal) []any {
	return []any{&w.ID, &w.UserID, &w.Amount, &w.Status, &w.BankName, &w.AccountHolder, &w.AccountNumber,
		&w.Notes, &w.ProcessedBy, &w.ProcessedAt, &w.CreatedAt, &w.UpdatedAt}
}

// ListBonuses returns the commissions earned by userID, newest first.
func (db *Database) ListBonuses(ctx context.Context, userID string, params models.ListParams) ([]models.Bonus, int, error) {
	params.Normalize()

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM bonuses WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bonuses: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, source_user_id, sale_id, amount, bonus_type, description, created_at
		FROM bonuses
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, userID, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	bonuses := []models.Bonus{}
	for rows.Next() {
		var b models.Bonus
		if err := rows.Scan(&b.ID, &b.UserID, &b.SourceUserID, &b.SaleID, &b.Amount, &b.BonusType,
			&b.Description, &b.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan bonus: %w", err)
		}
		bonuses = append(bonuses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating over bonuses: %w", err)
	}
	return bonuses, total, nil
}

// GetBalance sums the ledger of userID.
func (db *Database) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	return getBalance(ctx, db.Pool, userID)
}

func getBalance(ctx context.Context, q querier, userID string) (*models.Balance, error) {
	var b models.Balance
	err := q.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(amount), 0) FROM bonuses WHERE user_id = $1),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND status = 'paid'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND status IN ('pending', 'approved'))
	`, userID).Scan(&b.TotalEarned, &b.Withdrawn, &b.PendingPayouts)
	if err != nil {
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}
	b.Available = models.RoundMoney(b.TotalEarned - b.Withdrawn - b.PendingPayouts)
	return &b, nil
}

// RequestWithdrawal records a pending payout. The balance check and insert run under a
// per-user advisory lock so concurrent requests cannot overdraw.
func (db *Database) RequestWithdrawal(ctx context.Context, userID string, req models.WithdrawalRequest) (*models.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	var w models.Withdrawal
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}
		balance, err := getBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		if models.RoundMoney(req.Amount) > balance.Available {
			return fmt.Errorf("%w: available balance is %.2f", ErrInsufficientBalance, balance.Available)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO transactions AS t (user_id, amount, status, bank_name, account_holder, account_number)
			VALUES ($1, $2, 'pending', TRIM($3), TRIM($4), TRIM($5))
			RETURNING `+withdrawalColumns,
			userID, models.RoundMoney(req.Amount), req.BankName, req.AccountHolder, req.AccountNumber).Scan(withdrawalDest(&w)...)
		if err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListUserWithdrawals returns the payout requests of userID, newest first.
func (db *Database) ListUserWithdrawals(ctx context.Context, userID string, params models.ListParams) ([]models.Withdrawal, int, error) {
	resp, err := db.AdminListWithdrawals(ctx, models.WithdrawalListParams{ListParams: params, UserID: userID})
	if err != nil {
		return nil, 0, err
	}
	return resp.Withdrawals, resp.Total, nil
}

// AdminListWithdrawals lists payout requests across consultants.
func (db *Database) AdminListWithdrawals(ctx context.Context, params models.WithdrawalListParams) (*models.WithdrawalListResponse, error) {
	params.Normalize()

	var whereConditions []string
	var args []any
	argIndex := 1

	if params.Status != "" {
		if !models.WithdrawalStatus(params.Status).IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, params.Status)
		}
		whereConditions = append(whereConditions, fmt.Sprintf("t.status = $%d", argIndex))
		args = append(args, params.Status)
		argIndex++
	}
	if params.UserID != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("t.user_id = $%d", argIndex))
		args = append(args, params.UserID)
		argIndex++
	}
	if s := strings.TrimSpace(params.Search); s != "" {
		whereConditions = append(whereConditions, fmt.Sprintf(
			"(LOWER(u.email) LIKE LOWER($%d) OR LOWER(p.full_name) LIKE LOWER($%d))", argIndex, argIndex))
		args = append(args, "%"+s+"%")
		argIndex++
	}

	whereSQL := ""
	if len(whereConditions) > 0 {
		whereSQL = " WHERE " + strings.Join(whereConditions, " AND ")
	}
	orderByExpr := "t.created_at"
	if params.SortBy == "amount" {
		orderByExpr = "t.amount"
	}
	orderDir := "DESC"
	if params.SortOrder == "asc" {
		orderDir = "ASC"
	}

	from := ` FROM transactions t JOIN users u ON u.id = t.user_id LEFT JOIN profiles p ON p.id = t.user_id`

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*)`+from+whereSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	query := `SELECT ` + withdrawalColumns + `, u.email, COALESCE(p.full_name, '')` + from + whereSQL +
		fmt.Sprintf(" ORDER BY %s %s, t.id LIMIT $%d OFFSET $%d", orderByExpr, orderDir, argIndex, argIndex+1)
	rows, err := db.Pool.Query(ctx, query, append(args, params.Limit, params.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := []models.Withdrawal{}
	for rows.Next() {
		var w models.Withdrawal
		if err := rows.Scan(append(withdrawalDest(&w), &w.UserEmail, &w.UserName)...); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over withdrawals: %w", err)
	}

	return &models.WithdrawalListResponse{
		Withdrawals: withdrawals,
		Total:       total,
		Page:        params.Page,
		Limit:       params.Limit,
		TotalPages:  models.TotalPages(total, params.Limit),
	}, nil
}

// UpdateWithdrawalStatus moves a payout request along its state machine.
func (db *Database) UpdateWithdrawalStatus(ctx context.Context, id string, next models.WithdrawalStatus, notes string, adminID string) (*models.Withdrawal, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, next)
	}
	var w models.Withdrawal
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var current models.WithdrawalStatus
		err := tx.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load withdrawal: %w", err)
		}
		if !current.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}

		var notesArg *string
		if n := strings.TrimSpace(notes); n != "" {
			notesArg = &n
		}
		err = tx.QueryRow(ctx, `
			UPDATE transactions AS t SET status = $2, notes = COALESCE($3, t.notes), processed_by = $4,
				processed_at = now(), updated_at = now()
			WHERE t.id = $1
			RETURNING `+withdrawalColumns,
			id, string(next), notesArg, adminID).Scan(withdrawalDest(&w)...)
		if err != nil {
			return fmt.Errorf("failed to update withdrawal: %w", err)
		}
		return tx.QueryRow(ctx, `
			SELECT u.email, COALESCE(p.full_name, '')
			FROM users u LEFT JOIN profiles p ON p.id = u.id
			WHERE u.id = $1
		`, w.UserID).Scan(&w.UserEmail, &w.UserName)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}
