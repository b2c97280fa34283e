package service

import (
	"context"
	"fmt"
	"time"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/pkg/logger"
)

type TenantService interface {
	GetTenant(ctx context.Context, id string) (*domain.Tenant, error)
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	UpdateTenant(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error)
	ListModuleFlags(ctx context.Context, tenantID string) ([]domain.ModuleFlag, error)
	SetModuleFlag(ctx context.Context, tenantID string, req *domain.SetModuleFlagRequest) (*domain.ModuleFlag, error)
	AnalyticsSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error)
	ComputeAnalyticsSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error)
}

type tenantService struct {
	tenantRepo  postgres.TenantRepository
	orderRepo   postgres.OrderRepository
	loyaltyRepo postgres.LoyaltyRepository
	userRepo    postgres.UserRepository
	cache       *redisstore.AnalyticsCache
}

func NewTenantService(
	tenantRepo postgres.TenantRepository,
	orderRepo postgres.OrderRepository,
	loyaltyRepo postgres.LoyaltyRepository,
	userRepo postgres.UserRepository,
	cache *redisstore.AnalyticsCache,
) TenantService {
	return &tenantService{
		tenantRepo:  tenantRepo,
		orderRepo:   orderRepo,
		loyaltyRepo: loyaltyRepo,
		userRepo:    userRepo,
		cache:       cache,
	}
}

func (s *tenantService) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.E(domain.KindNotFound, "tenant not found")
	}
	return tenant, nil
}

func (s *tenantService) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	tenants, err := s.tenantRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}

func (s *tenantService) UpdateTenant(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.E(domain.KindNotFound, "tenant not found")
	}
	return tenant, nil
}

func (s *tenantService) ListModuleFlags(ctx context.Context, tenantID string) ([]domain.ModuleFlag, error) {
	flags, err := s.tenantRepo.ListModuleFlags(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module flags: %w", err)
	}
	return flags, nil
}

func (s *tenantService) SetModuleFlag(ctx context.Context, tenantID string, req *domain.SetModuleFlagRequest) (*domain.ModuleFlag, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	flag, err := s.tenantRepo.SetModuleFlag(ctx, tenantID, req.Module, req.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to set module flag: %w", err)
	}
	return flag, nil
}

// AnalyticsSummary reads through the warm cache. A miss or a cache error
// falls back to computing from the database, then reseeds the cache.
func (s *tenantService) AnalyticsSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	if cached, err := s.cache.GetSummary(ctx, tenantID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.WarnContext(ctx, "Analytics cache read failed", "error", err, "tenant_id", tenantID)
	}

	summary, err := s.ComputeAnalyticsSummary(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSummary(ctx, summary); err != nil {
		logger.WarnContext(ctx, "Analytics cache write failed", "error", err, "tenant_id", tenantID)
	}
	return summary, nil
}

func (s *tenantService) ComputeAnalyticsSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	total, paid, err := s.orderRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	revenue, err := s.orderRepo.RevenueByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	visits, err := s.loyaltyRepo.TotalVisits(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	activeUsers, err := s.userRepo.CountActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return &domain.AnalyticsSummary{
		TenantID:     tenantID,
		TotalOrders:  total,
		PaidOrders:   paid,
		RevenueCents: revenue,
		TotalVisits:  visits,
		ActiveUsers:  activeUsers,
		GeneratedAt:  time.Now(),
	}, nil
}
