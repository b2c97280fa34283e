package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washloop/washloop-api/internal/domain"
)

type CatalogRepository interface {
	ListServices(ctx context.Context, tenantID string) ([]domain.WashService, error)
	FindService(ctx context.Context, id int64) (*domain.WashService, error)
	ListExtras(ctx context.Context, tenantID string) ([]domain.Extra, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

const serviceCols = `id, tenant_id, name, category, description, price_cents, duration_min, active, created_at`

func (r *catalogRepository) ListServices(ctx context.Context, tenantID string) ([]domain.WashService, error) {
	const q = `
		SELECT ` + serviceCols + `
		FROM wash_services
		WHERE tenant_id = $1 AND active
		ORDER BY category, price_cents`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.WashService
	for rows.Next() {
		var s domain.WashService
		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.Name, &s.Category, &s.Description,
			&s.PriceCents, &s.DurationMin, &s.Active, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *catalogRepository) FindService(ctx context.Context, id int64) (*domain.WashService, error) {
	const q = `SELECT ` + serviceCols + ` FROM wash_services WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.WashService
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Category, &s.Description,
		&s.PriceCents, &s.DurationMin, &s.Active, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *catalogRepository) ListExtras(ctx context.Context, tenantID string) ([]domain.Extra, error) {
	// prices is a jsonb column of category -> price cents
	const q = `
		SELECT id, name, prices
		FROM extras
		WHERE tenant_id = $1
		ORDER BY id`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extras []domain.Extra
	for rows.Next() {
		var (
			e      domain.Extra
			prices []byte
		)
		if err := rows.Scan(&e.ID, &e.Name, &prices); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(prices, &e.Prices); err != nil {
			return nil, err
		}
		extras = append(extras, e)
	}
	return extras, rows.Err()
}
