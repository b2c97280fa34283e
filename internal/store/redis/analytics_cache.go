package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/washloop/washloop-api/internal/domain"
)

// AnalyticsCache is the warm cache for admin dashboard summaries. Warming
// seeds it at startup; the analytics handler reads through it with a DB
// fallback, so a cold or broken cache only costs latency.
type AnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnalyticsCache(client *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{client: client, ttl: ttl}
}

func summaryKey(tenantID string) string {
	return "analytics:summary:" + tenantID
}

func (c *AnalyticsCache) GetSummary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	raw, err := c.client.Get(ctx, summaryKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary domain.AnalyticsSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *AnalyticsCache) SetSummary(ctx context.Context, summary *domain.AnalyticsSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(summary.TenantID), raw, c.ttl).Err()
}

func (c *AnalyticsCache) SetCatalog(ctx context.Context, tenantID string, services []domain.WashService) error {
	raw, err := json.Marshal(services)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "catalog:services:"+tenantID, raw, c.ttl).Err()
}

func (c *AnalyticsCache) GetCatalog(ctx context.Context, tenantID string) ([]domain.WashService, error) {
	raw, err := c.client.Get(ctx, "catalog:services:"+tenantID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var services []domain.WashService
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, err
	}
	return services, nil
}
