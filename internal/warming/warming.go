// Package warming pre-loads per-tenant analytics summaries and catalog
// listings into the Redis cache at startup, so the first dashboard and
// booking-page hits after a deploy are served warm. Warming is a latency
// optimization only: every read path has a database fallback, so failures
// here are logged and never fatal.
package warming

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/internal/service"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/pkg/logger"
)

type Warmer struct {
	tenantRepo  postgres.TenantRepository
	catalogRepo postgres.CatalogRepository
	tenants     service.TenantService
	cache       *redisstore.AnalyticsCache
}

func New(
	tenantRepo postgres.TenantRepository,
	catalogRepo postgres.CatalogRepository,
	tenants service.TenantService,
	cache *redisstore.AnalyticsCache,
) *Warmer {
	return &Warmer{
		tenantRepo:  tenantRepo,
		catalogRepo: catalogRepo,
		tenants:     tenants,
		cache:       cache,
	}
}

// WarmAll warms every tenant concurrently. A failed tenant does not stop
// the others.
func (w *Warmer) WarmAll(ctx context.Context) {
	start := time.Now()

	tenants, err := w.tenantRepo.List(ctx)
	if err != nil {
		logger.Error("Cache warming skipped, failed to list tenants", "error", err)
		return
	}
	if len(tenants) == 0 {
		logger.Info("No tenants found, skipping cache warming")
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, tenant := range tenants {
		tenantID := tenant.ID
		g.Go(func() error {
			if err := w.warmTenant(ctx, tenantID); err != nil {
				logger.Error("Failed to warm tenant cache", "error", err, "tenant_id", tenantID)
			}
			return nil
		})
	}

	g.Wait()
	logger.Info("Cache warming complete", "tenants", len(tenants), "elapsed_ms", time.Since(start).Milliseconds())
}

func (w *Warmer) warmTenant(ctx context.Context, tenantID string) error {
	summary, err := w.tenants.ComputeAnalyticsSummary(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := w.cache.SetSummary(ctx, summary); err != nil {
		return err
	}

	services, err := w.catalogRepo.ListServices(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := w.cache.SetCatalog(ctx, tenantID, services); err != nil {
		return err
	}

	logger.Info("Warmed tenant cache", "tenant_id", tenantID, "services", len(services))
	return nil
}
