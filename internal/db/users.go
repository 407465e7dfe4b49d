package db

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Pixelkingsa/consultant-connect/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.created_at, u.updated_at,
	EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	        WHERE ur.user_id = u.id AND r.name = 'admin')`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var admin bool
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &admin); err != nil {
		return nil, err
	}
	if admin {
		u.Role = models.RoleAdmin
	}
	return &u, nil
}

// CreateAccount registers a user and its consultant profile in one transaction.
// The sponsor, when given by referral code, becomes the upline and every ancestor's
// team size grows by one.
func (db *Database) CreateAccount(ctx context.Context, acc models.NewAccount) (*models.User, error) {
	var user *models.User
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var uplineID *string
		if code := strings.TrimSpace(acc.ReferralCode); code != "" {
			var id string
			err := tx.QueryRow(ctx, `SELECT id FROM profiles WHERE UPPER(referral_code) = UPPER($1)`, code).Scan(&id)
			if isNoRows(err) {
				return ErrInvalidReferral
			}
			if err != nil {
				return fmt.Errorf("failed to resolve referral code: %w", err)
			}
			uplineID = &id
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id, email, password_hash, created_at, updated_at, false
		`, strings.ToLower(strings.TrimSpace(acc.Email)), acc.PasswordHash)
		u, err := scanUser(row)
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user = u

		var rankName string
		err = tx.QueryRow(ctx, `SELECT name FROM ranks ORDER BY level ASC LIMIT 1`).Scan(&rankName)
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("failed to load starting rank: %w", err)
		}

		code := strings.ToUpper(strings.TrimSpace(acc.OwnCode))
		if code == "" {
			if code, err = uniqueReferralCode(ctx, tx); err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (id, full_name, phone, rank_name, referral_code, upline_id)
			VALUES ($1, $2, NULLIF(TRIM($3), ''), $4, $5, $6)
		`, u.ID, strings.TrimSpace(acc.FullName), derefString(acc.Phone), rankName, code, uplineID)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: referral code already taken", ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}

		if uplineID != nil {
			if _, err := tx.Exec(ctx, ancestorsCTE+`
				UPDATE profiles SET team_size = team_size + 1, updated_at = now()
				WHERE id IN (SELECT id FROM chain)
			`, u.ID); err != nil {
				return fmt.Errorf("failed to update team sizes: %w", err)
			}
		}

		if acc.GrantAdmin {
			if err := grantAdmin(ctx, tx, u.ID); err != nil {
				return err
			}
			user.Role = models.RoleAdmin
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// uniqueReferralCode draws codes until one is free.
func uniqueReferralCode(ctx context.Context, q querier) (string, error) {
	for i := 0; i < 5; i++ {
		code := NewReferralCode()
		var taken bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE referral_code = $1)`, code).Scan(&taken); err != nil {
			return "", fmt.Errorf("failed to check referral code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a referral code", ErrConflict)
}

// NewReferralCode returns a short, upper-case code such as CC3F9A1B2C.
func NewReferralCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CC" + strings.ToUpper(id[:8])
}

// GetUserByEmail returns the user with the given email, case-insensitively.
func (db *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE LOWER(u.email) = LOWER($1)`, strings.TrimSpace(email)))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID returns the user with the given id.
func (db *Database) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// SetAdminRole grants or revokes the admin role.
func (db *Database) SetAdminRole(ctx context.Context, userID string, admin bool) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		if admin {
			return grantAdmin(ctx, tx, userID)
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM user_roles
			WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = 'admin')
		`, userID)
		if err != nil {
			return fmt.Errorf("failed to revoke admin role: %w", err)
		}
		return nil
	})
}

func grantAdmin(ctx context.Context, q querier, userID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = 'admin'
		ON CONFLICT DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to grant admin role: %w", err)
	}
	return nil
}

// HashRefreshToken computes a URL-safe base64-encoded SHA-256 hash of the refresh token
func HashRefreshToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// CreateRefreshToken stores a hashed refresh token. The plain token is never stored.
func (db *Database) CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time, ip, userAgent string) (string, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''))
		RETURNING id
	`
	var id string
	if err := db.Pool.QueryRow(ctx, query, userID, tokenHash, expiresAt, ip, userAgent).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to create refresh token: %w", err)
	}
	return id, nil
}

// GetRefreshToken looks up a refresh token by its hash.
func (db *Database) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, expires_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.Revoked)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &t, nil
}

// RevokeRefreshToken marks a token as revoked.
func (db *Database) RevokeRefreshToken(ctx context.Context, id string) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens signs a user out everywhere.
func (db *Database) RevokeUserRefreshTokens(ctx context.Context, userID string) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CleanupExpiredRefreshTokens removes tokens expired for a week and revoked tokens past expiry.
func (db *Database) CleanupExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < now() - interval '7 days' OR (revoked = true AND expires_at < now())`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
