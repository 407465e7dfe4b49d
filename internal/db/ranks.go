package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/config"
	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const rankColumns = `id, name, level, pv_threshold, gv_threshold, commission_rate, version, created_at, updated_at`

func scanRank(row pgx.Row) (*models.Rank, error) {
	var r models.Rank
	if err := row.Scan(&r.ID, &r.Name, &r.Level, &r.PVThreshold, &r.GVThreshold, &r.CommissionRate,
		&r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRanks returns the compensation plan ordered by level.
func (db *Database) ListRanks(ctx context.Context) ([]models.Rank, error) {
	return listRanks(ctx, db.Pool, false)
}

func listRanks(ctx context.Context, q querier, forUpdate bool) ([]models.Rank, error) {
	query := `SELECT ` + rankColumns + ` FROM ranks ORDER BY level ASC`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranks: %w", err)
	}
	defer rows.Close()

	ranks := []models.Rank{}
	for rows.Next() {
		r, err := scanRank(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		ranks = append(ranks, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ranks: %w", err)
	}
	return ranks, nil
}

// GetRank returns one rank.
func (db *Database) GetRank(ctx context.Context, id int) (*models.Rank, error) {
	r, err := scanRank(db.Pool.QueryRow(ctx, `SELECT `+rankColumns+` FROM ranks WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}
	return r, nil
}

// CreateRank adds a tier. Without a level it goes above the current top rank.
func (db *Database) CreateRank(ctx context.Context, req models.RankRequest) (*models.Rank, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO ranks (name, level, pv_threshold, gv_threshold, commission_rate)
		VALUES (TRIM($1), COALESCE($2, (SELECT COALESCE(MAX(level), 0) + 1 FROM ranks)), $3, $4, $5)
		RETURNING `+rankColumns,
		req.Name, req.Level, req.PVThreshold, req.GVThreshold, derefFloat(req.CommissionRate))
	r, err := scanRank(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: rank name or level already exists", ErrConflict)
	}
	if isCheckViolation(err) {
		return nil, fmt.Errorf("%w: thresholds must not be negative and the rate must be within 0-100", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create rank: %w", err)
	}
	return r, nil
}

// UpdateRank edits a rank if req.Version still matches. Renaming carries over to
// every consultant holding the rank.
func (db *Database) UpdateRank(ctx context.Context, id int, req models.UpdateRankRequest) (*models.Rank, error) {
	var updated *models.Rank
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var oldName string
		var version int
		err := tx.QueryRow(ctx, `SELECT name, version FROM ranks WHERE id = $1 FOR UPDATE`, id).Scan(&oldName, &version)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load rank: %w", err)
		}
		if version != req.Version {
			return ErrVersionMismatch
		}

		row := tx.QueryRow(ctx, `
			UPDATE ranks SET
				name = TRIM($2), level = COALESCE($3, level), pv_threshold = $4, gv_threshold = $5,
				commission_rate = $6, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING `+rankColumns,
			id, req.Name, req.Level, req.PVThreshold, req.GVThreshold, derefFloat(req.CommissionRate))
		updated, err = scanRank(row)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: rank name or level already exists", ErrConflict)
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: thresholds must not be negative and the rate must be within 0-100", ErrInvalidInput)
		}
		if err != nil {
			return fmt.Errorf("failed to update rank: %w", err)
		}

		if updated.Name != oldName {
			if _, err := tx.Exec(ctx, `UPDATE profiles SET rank_name = $2, updated_at = now() WHERE rank_name = $1`, oldName, updated.Name); err != nil {
				return fmt.Errorf("failed to rename rank on profiles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRank removes a rank nobody holds.
func (db *Database) DeleteRank(ctx context.Context, id int) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, `SELECT name FROM ranks WHERE id = $1 FOR UPDATE`, id).Scan(&name)
		if isNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load rank: %w", err)
		}

		var holders int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE rank_name = $1`, name).Scan(&holders); err != nil {
			return fmt.Errorf("failed to count rank holders: %w", err)
		}
		if holders > 0 {
			return fmt.Errorf("%w: %d consultants hold %s", ErrRankInUse, holders, name)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM ranks WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete rank: %w", err)
		}
		return nil
	})
}

// MoveRank swaps the level of a rank with its neighbour above ("up") or below ("down")
// and returns the reordered plan.
func (db *Database) MoveRank(ctx context.Context, id int, direction string) ([]models.Rank, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("%w: direction must be up or down", ErrInvalidInput)
	}
	var ranks []models.Rank
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		all, err := listRanks(ctx, tx, true)
		if err != nil {
			return err
		}
		idx := -1
		for i := range all {
			if all[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotFound
		}

		other := idx + 1
		if direction == "down" {
			other = idx - 1
		}
		if other < 0 || other >= len(all) {
			return fmt.Errorf("%w: rank is already at the %s", ErrInvalidInput, map[string]string{"up": "top", "down": "bottom"}[direction])
		}

		a, b := all[idx], all[other]
		// park a on a free level so the unique constraint holds mid-swap
		if _, err := tx.Exec(ctx, `UPDATE ranks SET level = -level WHERE id = $1`, a.ID); err != nil {
			return fmt.Errorf("failed to move rank: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE ranks SET level = $2, version = version + 1, updated_at = now() WHERE id = $1`, b.ID, a.Level); err != nil {
			return fmt.Errorf("failed to move rank: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE ranks SET level = $2, version = version + 1, updated_at = now() WHERE id = $1`, a.ID, b.Level); err != nil {
			return fmt.Errorf("failed to move rank: %w", err)
		}

		ranks, err = listRanks(ctx, tx, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ranks, nil
}

// SeedRanks inserts the plan when the ranks table is empty. It returns how many ranks were added.
func (db *Database) SeedRanks(ctx context.Context, plan *config.Plan) (int, error) {
	if plan == nil || len(plan.Ranks) == 0 {
		return 0, nil
	}
	inserted := 0
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE ranks IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("failed to lock ranks: %w", err)
		}
		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ranks`).Scan(&count); err != nil {
			return fmt.Errorf("failed to count ranks: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, r := range plan.Ranks {
			if _, err := tx.Exec(ctx, `
				INSERT INTO ranks (name, level, pv_threshold, gv_threshold, commission_rate)
				VALUES ($1, $2, $3, $4, $5)
			`, strings.TrimSpace(r.Name), r.Level, r.PVThreshold, r.GVThreshold, r.CommissionRate); err != nil {
				return fmt.Errorf("failed to seed rank %s: %w", r.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		log.Printf("[DB] Seeded %d ranks from compensation plan", inserted)
	}
	return inserted, nil
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
