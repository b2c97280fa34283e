package domain

import "time"

// Reward is a loyalty milestone (e.g. "free wash at 5 visits").
type Reward struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	VisitsRequired int    `json:"visits_required"`
}

// LoyaltySummary is the GET /loyalty/me payload.
type LoyaltySummary struct {
	Visits          int      `json:"visits"`
	RewardsReady    []Reward `json:"rewards_ready"`
	UpcomingRewards []Reward `json:"upcoming_rewards"`
}

type LoyaltyVisit struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TenantID   string    `json:"tenant_id"`
	OrderID    int64     `json:"order_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type RedeemRewardRequest struct {
	RewardID int64 `json:"reward_id"`
}

func (r *RedeemRewardRequest) Validate() error {
	if r.RewardID == 0 {
		return E(KindValidation, "reward_id is required")
	}
	return nil
}
