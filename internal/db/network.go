package db

import (
	"context"
	"fmt"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
	"github.com/Pixelkingsa/consultant-connect/internal/network"
)

// ancestorsCTE defines chain(id, depth): every upline of the profile $1, nearest
// first. The path array stops the walk if the tree ever contains a cycle.
const ancestorsCTE = `
	WITH RECURSIVE chain AS (
		SELECT p.upline_id AS id, 1 AS depth, ARRAY[p.id, p.upline_id] AS path
		FROM profiles p
		WHERE p.id = $1 AND p.upline_id IS NOT NULL
		UNION ALL
		SELECT p.upline_id, c.depth + 1, c.path || p.upline_id
		FROM profiles p
		JOIN chain c ON p.id = c.id
		WHERE p.upline_id IS NOT NULL AND NOT (p.upline_id = ANY (c.path))
	)`

// GetDownline returns the root profile and every consultant up to maxDepth levels below it.
func (db *Database) GetDownline(ctx context.Context, rootID string, maxDepth int) ([]network.Member, error) {
	rows, err := db.Pool.Query(ctx, `
		WITH RECURSIVE tree AS (
			SELECT p.id, p.upline_id, 0 AS depth, ARRAY[p.id] AS path
			FROM profiles p
			WHERE p.id = $1
			UNION ALL
			SELECT p.id, p.upline_id, t.depth + 1, t.path || p.id
			FROM profiles p
			JOIN tree t ON p.upline_id = t.id
			WHERE t.depth < $2 AND NOT (p.id = ANY (t.path))
		)
		SELECT p.id, p.upline_id, p.full_name, p.rank_name, p.personal_volume, p.group_volume,
		       p.team_size, p.created_at, t.depth
		FROM tree t
		JOIN profiles p ON p.id = t.id
		ORDER BY t.depth, p.created_at
	`, rootID, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to query downline: %w", err)
	}
	defer rows.Close()

	var members []network.Member
	for rows.Next() {
		var m network.Member
		if err := rows.Scan(&m.ID, &m.UplineID, &m.FullName, &m.RankName, &m.PersonalVolume,
			&m.GroupVolume, &m.TeamSize, &m.JoinedAt, &m.Depth); err != nil {
			return nil, fmt.Errorf("failed to scan downline member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over downline: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrNotFound
	}
	return members, nil
}

// GetUpline returns the ancestors of userID, nearest first.
func (db *Database) GetUpline(ctx context.Context, userID string) ([]models.Profile, error) {
	rows, err := db.Pool.Query(ctx, ancestorsCTE+`
		SELECT `+profileColumns+`
		FROM chain c
		JOIN profiles p ON p.id = c.id
		JOIN users u ON u.id = p.id
		ORDER BY c.depth
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upline: %w", err)
	}
	defer rows.Close()

	upline := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(profileDest(&p)...); err != nil {
			return nil, fmt.Errorf("failed to scan upline: %w", err)
		}
		upline = append(upline, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over upline: %w", err)
	}
	return upline, nil
}
