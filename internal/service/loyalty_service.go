package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/pkg/config"
	"github.com/washloop/washloop-api/pkg/events"
	"github.com/washloop/washloop-api/pkg/logger"
)

type LoyaltyService interface {
	Summary(ctx context.Context, userID int64, tenantID string) (*domain.LoyaltySummary, error)
	Redeem(ctx context.Context, userID int64, tenantID string, rewardID int64) error
	StartAccrual() error
}

type loyaltyService struct {
	loyaltyRepo postgres.LoyaltyRepository
	eventBus    events.EventBus
	config      *config.Config
}

func NewLoyaltyService(
	loyaltyRepo postgres.LoyaltyRepository,
	eventBus events.EventBus,
	cfg *config.Config,
) LoyaltyService {
	return &loyaltyService{
		loyaltyRepo: loyaltyRepo,
		eventBus:    eventBus,
		config:      cfg,
	}
}

func (s *loyaltyService) Summary(ctx context.Context, userID int64, tenantID string) (*domain.LoyaltySummary, error) {
	since := time.Now().Add(-s.config.Loyalty.RewardWindow)
	visits, err := s.loyaltyRepo.CountVisits(ctx, userID, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	rewards, err := s.loyaltyRepo.ListRewards(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	summary := &domain.LoyaltySummary{
		Visits:          visits,
		RewardsReady:    []domain.Reward{},
		UpcomingRewards: []domain.Reward{},
	}

	for _, reward := range rewards {
		if visits < reward.VisitsRequired {
			summary.UpcomingRewards = append(summary.UpcomingRewards, reward)
			continue
		}

		// Earned more times than redeemed means one is waiting.
		redeemed, err := s.loyaltyRepo.CountRedemptions(ctx, userID, reward.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count redemptions: %w", err)
		}
		earned := visits / reward.VisitsRequired
		if earned > redeemed {
			summary.RewardsReady = append(summary.RewardsReady, reward)
		} else {
			summary.UpcomingRewards = append(summary.UpcomingRewards, reward)
		}
	}

	return summary, nil
}

func (s *loyaltyService) Redeem(ctx context.Context, userID int64, tenantID string, rewardID int64) error {
	reward, err := s.loyaltyRepo.FindReward(ctx, rewardID)
	if err != nil {
		return fmt.Errorf("failed to load reward: %w", err)
	}
	if reward == nil {
		return domain.E(domain.KindNotFound, "reward not found")
	}

	since := time.Now().Add(-s.config.Loyalty.RewardWindow)
	visits, err := s.loyaltyRepo.CountVisits(ctx, userID, tenantID, since)
	if err != nil {
		return fmt.Errorf("failed to count visits: %w", err)
	}
	redeemed, err := s.loyaltyRepo.CountRedemptions(ctx, userID, rewardID)
	if err != nil {
		return fmt.Errorf("failed to count redemptions: %w", err)
	}

	if visits/reward.VisitsRequired <= redeemed {
		return domain.E(domain.KindConflict, "reward is not ready to redeem")
	}

	if err := s.loyaltyRepo.RecordRedemption(ctx, userID, rewardID); err != nil {
		return fmt.Errorf("failed to record redemption: %w", err)
	}
	return nil
}

// StartAccrual subscribes to payment captures and records a loyalty visit
// for each paid order. Queue subscription keeps accrual single-shot when
// multiple instances run.
func (s *loyaltyService) StartAccrual() error {
	return s.eventBus.QueueSubscribe(events.PaymentCaptured, "loyalty-accrual", func(msg *events.Message) {
		ctx := context.Background()

		var event events.PaymentCapturedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to parse payment captured event", "error", err)
			return
		}

		visits, err := s.loyaltyRepo.RecordVisit(ctx, event.UserID, event.TenantID, event.OrderID)
		if err != nil {
			logger.Error("Failed to record loyalty visit", "error", err, "order_id", event.OrderID)
			return
		}

		if err := s.eventBus.Publish(ctx, events.LoyaltyVisitRecorded, events.LoyaltyVisitRecordedEvent{
			UserID:     event.UserID,
			TenantID:   event.TenantID,
			Visits:     visits,
			RecordedAt: time.Now(),
		}); err != nil {
			logger.Warn("Failed to publish visit recorded event", "error", err)
		}

		if s.config.Loyalty.VisitsPerReward > 0 && visits%s.config.Loyalty.VisitsPerReward == 0 {
			if err := s.eventBus.Publish(ctx, events.LoyaltyRewardReady, map[string]any{
				"user_id":   event.UserID,
				"tenant_id": event.TenantID,
				"visits":    visits,
			}); err != nil {
				logger.Warn("Failed to publish reward ready event", "error", err)
			}
		}
	})
}
