package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washloop/washloop-api/internal/domain"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	CountByTenant(ctx context.Context, tenantID string) (total, paid int64, err error)
	RevenueByTenant(ctx context.Context, tenantID string) (int64, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

const orderCols = `id, user_id, tenant_id, service_id, quantity, extras, scheduled_at, total_cents, status, qr_data, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		extras []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.TenantID, &o.ServiceID, &o.Quantity, &extras,
		&o.ScheduledAt, &o.TotalCents, &o.Status, &o.QRData, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(extras, &o.Extras); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	const q = `
		INSERT INTO orders (user_id, tenant_id, service_id, quantity, extras, scheduled_at, total_cents, status, qr_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + orderCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	extras, err := json.Marshal(order.Extras)
	if err != nil {
		return nil, err
	}

	return scanOrder(r.pool.QueryRow(ctx, q,
		order.UserID, order.TenantID, order.ServiceID, order.Quantity, extras,
		order.ScheduledAt, order.TotalCents, order.Status, order.QRData,
	))
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `SELECT ` + orderCols + ` FROM orders WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	const q = `
		SELECT ` + orderCols + `
		FROM orders
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o      domain.Order
			extras []byte
		)
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.TenantID, &o.ServiceID, &o.Quantity, &extras,
			&o.ScheduledAt, &o.TotalCents, &o.Status, &o.QRData, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(extras, &o.Extras); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *orderRepository) CountByTenant(ctx context.Context, tenantID string) (int64, int64, error) {
	const q = `
		SELECT count(*), count(*) FILTER (WHERE status IN ('paid', 'redeemed'))
		FROM orders
		WHERE tenant_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var total, paid int64
	err := r.pool.QueryRow(ctx, q, tenantID).Scan(&total, &paid)
	return total, paid, err
}

func (r *orderRepository) RevenueByTenant(ctx context.Context, tenantID string) (int64, error) {
	const q = `
		SELECT coalesce(sum(total_cents), 0)
		FROM orders
		WHERE tenant_id = $1 AND status IN ('paid', 'redeemed')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var revenue int64
	err := r.pool.QueryRow(ctx, q, tenantID).Scan(&revenue)
	return revenue, err
}
