package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washloop/washloop-api/internal/domain"
)

type LoyaltyRepository interface {
	RecordVisit(ctx context.Context, userID int64, tenantID string, orderID int64) (int, error)
	CountVisits(ctx context.Context, userID int64, tenantID string, since time.Time) (int, error)
	TotalVisits(ctx context.Context, tenantID string) (int64, error)
	ListRewards(ctx context.Context, tenantID string) ([]domain.Reward, error)
	FindReward(ctx context.Context, id int64) (*domain.Reward, error)
	RecordRedemption(ctx context.Context, userID, rewardID int64) error
	CountRedemptions(ctx context.Context, userID, rewardID int64) (int, error)
}

type loyaltyRepository struct {
	pool *pgxpool.Pool
}

func NewLoyaltyRepository(pool *pgxpool.Pool) LoyaltyRepository {
	return &loyaltyRepository{pool: pool}
}

// RecordVisit inserts a visit and returns the user's new visit count for the
// tenant. A visit is keyed to its order so webhook replays cannot double-count.
func (r *loyaltyRepository) RecordVisit(ctx context.Context, userID int64, tenantID string, orderID int64) (int, error) {
	const q = `
		INSERT INTO loyalty_visits (user_id, tenant_id, order_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.pool.Exec(ctx, q, userID, tenantID, orderID); err != nil {
		return 0, err
	}

	var visits int
	const countQ = `SELECT count(*) FROM loyalty_visits WHERE user_id = $1 AND tenant_id = $2`
	if err := r.pool.QueryRow(ctx, countQ, userID, tenantID).Scan(&visits); err != nil {
		return 0, err
	}
	return visits, nil
}

func (r *loyaltyRepository) CountVisits(ctx context.Context, userID int64, tenantID string, since time.Time) (int, error) {
	const q = `
		SELECT count(*)
		FROM loyalty_visits
		WHERE user_id = $1 AND tenant_id = $2 AND recorded_at >= $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var visits int
	err := r.pool.QueryRow(ctx, q, userID, tenantID, since).Scan(&visits)
	return visits, err
}

func (r *loyaltyRepository) TotalVisits(ctx context.Context, tenantID string) (int64, error) {
	const q = `SELECT count(*) FROM loyalty_visits WHERE tenant_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var visits int64
	err := r.pool.QueryRow(ctx, q, tenantID).Scan(&visits)
	return visits, err
}

func (r *loyaltyRepository) ListRewards(ctx context.Context, tenantID string) ([]domain.Reward, error) {
	const q = `
		SELECT id, name, visits_required
		FROM rewards
		WHERE tenant_id = $1
		ORDER BY visits_required`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []domain.Reward
	for rows.Next() {
		var rw domain.Reward
		if err := rows.Scan(&rw.ID, &rw.Name, &rw.VisitsRequired); err != nil {
			return nil, err
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}

func (r *loyaltyRepository) FindReward(ctx context.Context, id int64) (*domain.Reward, error) {
	const q = `SELECT id, name, visits_required FROM rewards WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rw domain.Reward
	err := r.pool.QueryRow(ctx, q, id).Scan(&rw.ID, &rw.Name, &rw.VisitsRequired)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rw, nil
}

func (r *loyaltyRepository) RecordRedemption(ctx context.Context, userID, rewardID int64) error {
	const q = `INSERT INTO reward_redemptions (user_id, reward_id) VALUES ($1, $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, rewardID)
	return err
}

func (r *loyaltyRepository) CountRedemptions(ctx context.Context, userID, rewardID int64) (int, error) {
	const q = `SELECT count(*) FROM reward_redemptions WHERE user_id = $1 AND reward_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q, userID, rewardID).Scan(&n)
	return n, err
}
