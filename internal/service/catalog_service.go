package service

import (
	"context"
	"fmt"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/pkg/logger"
)

// CatalogService serves the public catalog through the warm cache, falling
// back to the database on a miss.
type CatalogService struct {
	catalogRepo postgres.CatalogRepository
	cache       *redisstore.AnalyticsCache
}

func NewCatalogService(catalogRepo postgres.CatalogRepository, cache *redisstore.AnalyticsCache) *CatalogService {
	return &CatalogService{catalogRepo: catalogRepo, cache: cache}
}

func (s *CatalogService) Services(ctx context.Context, tenantID string) ([]domain.WashService, error) {
	if cached, err := s.cache.GetCatalog(ctx, tenantID); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		logger.WarnContext(ctx, "Catalog cache read failed", "error", err, "tenant_id", tenantID)
	}

	services, err := s.catalogRepo.ListServices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	if err := s.cache.SetCatalog(ctx, tenantID, services); err != nil {
		logger.WarnContext(ctx, "Catalog cache write failed", "error", err, "tenant_id", tenantID)
	}
	return services, nil
}

func (s *CatalogService) Extras(ctx context.Context, tenantID string) ([]domain.Extra, error) {
	extras, err := s.catalogRepo.ListExtras(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extras: %w", err)
	}
	return extras, nil
}
