package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/washloop/washloop-api/internal/domain"
)

type TenantRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context) ([]domain.Tenant, error)
	Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error)
	ListModuleFlags(ctx context.Context, tenantID string) ([]domain.ModuleFlag, error)
	SetModuleFlag(ctx context.Context, tenantID, module string, enabled bool) (*domain.ModuleFlag, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	const q = `SELECT id, name, branding, created_at, updated_at FROM tenants WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		t        domain.Tenant
		branding []byte
	)
	err := r.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &branding, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(branding, &t.Branding); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	const q = `SELECT id, name, branding, created_at, updated_at FROM tenants ORDER BY id`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var (
			t        domain.Tenant
			branding []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &branding, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(branding, &t.Branding); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *tenantRepository) Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error) {
	const q = `
		UPDATE tenants
		SET name = COALESCE($2, name),
		    branding = COALESCE($3, branding),
		    updated_at = now()
		WHERE id = $1
		RETURNING id, name, branding, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var brandingArg any
	if req.Branding != nil {
		b, err := json.Marshal(req.Branding)
		if err != nil {
			return nil, err
		}
		brandingArg = b
	}

	var (
		t        domain.Tenant
		branding []byte
	)
	err := r.pool.QueryRow(ctx, q, id, req.Name, brandingArg).Scan(&t.ID, &t.Name, &branding, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(branding, &t.Branding); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tenantRepository) ListModuleFlags(ctx context.Context, tenantID string) ([]domain.ModuleFlag, error) {
	const q = `
		SELECT tenant_id, module, enabled, updated_at
		FROM module_flags
		WHERE tenant_id = $1
		ORDER BY module`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []domain.ModuleFlag
	for rows.Next() {
		var f domain.ModuleFlag
		if err := rows.Scan(&f.TenantID, &f.Module, &f.Enabled, &f.UpdatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (r *tenantRepository) SetModuleFlag(ctx context.Context, tenantID, module string, enabled bool) (*domain.ModuleFlag, error) {
	const q = `
		INSERT INTO module_flags (tenant_id, module, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, module) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			updated_at = now()
		RETURNING tenant_id, module, enabled, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var f domain.ModuleFlag
	err := r.pool.QueryRow(ctx, q, tenantID, module, enabled).Scan(&f.TenantID, &f.Module, &f.Enabled, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
