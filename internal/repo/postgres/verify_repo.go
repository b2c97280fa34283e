package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// VerifyRepository stores one-time verification codes (phone OTP) and
// single-use magic login tokens. Codes are stored bcrypt-hashed.
type VerifyRepository interface {
	CreateOTP(ctx context.Context, sessionID, phone, codeHash string, expiresAt time.Time) error
	CheckOTP(ctx context.Context, sessionID, code string, maxAttempts int) (phone string, valid bool, err error)
	CreateMagicToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ConsumeMagicToken(ctx context.Context, token string) (userID int64, err error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type verifyRepository struct {
	pool *pgxpool.Pool
}

func NewVerifyRepository(pool *pgxpool.Pool) VerifyRepository {
	return &verifyRepository{pool: pool}
}

func (r *verifyRepository) CreateOTP(ctx context.Context, sessionID, phone, codeHash string, expiresAt time.Time) error {
	const q = `
		INSERT INTO otp_codes (session_id, phone, code_hash, expires_at)
		VALUES ($1, $2, $3, $4)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, sessionID, phone, codeHash, expiresAt)
	return err
}

func (r *verifyRepository) CheckOTP(ctx context.Context, sessionID, code string, maxAttempts int) (string, bool, error) {
	const q = `
		SELECT id, phone, code_hash, expires_at, used_at, attempts
		FROM otp_codes
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id       int64
		phone    string
		hash     string
		expires  time.Time
		used     *time.Time
		attempts int
	)

	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&id, &phone, &hash, &expires, &used, &attempts)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}

	if used != nil || time.Now().After(expires) || attempts >= maxAttempts {
		return "", false, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		_, _ = r.pool.Exec(ctx, `UPDATE otp_codes SET attempts = attempts + 1 WHERE id = $1`, id)
		return "", false, nil
	}

	_, _ = r.pool.Exec(ctx, `UPDATE otp_codes SET used_at = now() WHERE id = $1`, id)
	return phone, true, nil
}

func (r *verifyRepository) CreateMagicToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	const q = `
		INSERT INTO magic_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, token, expiresAt)
	return err
}

func (r *verifyRepository) ConsumeMagicToken(ctx context.Context, token string) (int64, error) {
	const q = `
		UPDATE magic_tokens
		SET used_at = now()
		WHERE token = $1
		  AND used_at IS NULL
		  AND expires_at > now()
		RETURNING user_id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var userID int64
	err := r.pool.QueryRow(ctx, q, token).Scan(&userID)
	if err == pgx.ErrNoRows {
		return 0, nil // invalid, used, or expired
	}
	return userID, err
}

func (r *verifyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `
		DELETE FROM otp_codes
		WHERE (used_at IS NOT NULL AND used_at < now() - interval '7 days')
		   OR (used_at IS NULL AND expires_at < now() - interval '1 day')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
