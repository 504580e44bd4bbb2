package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const codeDigits = 6

type ResetCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Code      string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ResetStore persists password reset codes. FindValid returns nil, nil when
// no unused, unexpired code matches. Claim flips an unused code to used and
// reports false when another request already did.
type ResetStore interface {
	Create(ctx context.Context, rc *ResetCode) error
	FindValid(ctx context.Context, userID uuid.UUID, code string, now time.Time) (*ResetCode, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
}

type resetRepository struct {
	db *sql.DB
}

func NewResetRepository(db *sql.DB) *resetRepository {
	return &resetRepository{db: db}
}

func (r *resetRepository) Create(ctx context.Context, rc *ResetCode) error {
	query := `
        INSERT INTO password_reset_codes (id, user_id, code, expires_at, used, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.db.ExecContext(ctx, query,
		rc.ID,
		rc.UserID,
		rc.Code,
		rc.ExpiresAt,
		rc.Used,
		rc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reset code: %w", err)
	}
	return nil
}

func (r *resetRepository) FindValid(ctx context.Context, userID uuid.UUID, code string, now time.Time) (*ResetCode, error) {
	var rc ResetCode

	query := `
        SELECT id, user_id, code, expires_at, used, created_at
        FROM password_reset_codes
        WHERE user_id = $1 AND code = $2 AND used = FALSE AND expires_at > $3
        ORDER BY created_at DESC
        LIMIT 1
    `
	err := r.db.QueryRowContext(ctx, query, userID, code, now).Scan(
		&rc.ID,
		&rc.UserID,
		&rc.Code,
		&rc.ExpiresAt,
		&rc.Used,
		&rc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *resetRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE password_reset_codes SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("claiming reset code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func newResetCode(userID uuid.UUID, now time.Time, ttl time.Duration) (*ResetCode, error) {
	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	return &ResetCode{
		ID:        uuid.New(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// generateCode returns a random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()+100000), nil
}
