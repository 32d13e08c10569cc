package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

var knownPlans = map[string]bool{
	"free":       true,
	"starter":    true,
	"growth":     true,
	"enterprise": true,
}

// Service provides billing display and plan-change logic
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *Service) ListInvoices(ctx context.Context, tenantID uuid.UUID) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, tenantID)
}

// ChangePlan retags the tenant's subscription. The billing provider
// handles proration and charging out of band.
func (s *Service) ChangePlan(ctx context.Context, tenantID uuid.UUID, plan string) error {
	if !knownPlans[plan] {
		return fmt.Errorf("unknown plan %q", plan)
	}
	if _, err := s.GetSubscription(ctx, tenantID); err != nil {
		return err
	}
	if err := s.repo.UpdatePlan(ctx, tenantID, plan); err != nil {
		return fmt.Errorf("failed to change plan: %w", err)
	}
	s.logger.Info("plan changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan", plan))
	return nil
}

// PlanBreakdown computes the plan distribution shown on the billing
// dashboard. Pure arithmetic over the fetched list.
func (s *Service) PlanBreakdown(ctx context.Context) ([]PlanShare, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return ComputePlanShares(subs), nil
}

// ComputePlanShares aggregates subscriptions into per-plan shares
func ComputePlanShares(subs []Subscription) []PlanShare {
	total := len(subs)
	byPlan := make(map[string]*PlanShare)
	for _, sub := range subs {
		share, ok := byPlan[sub.Plan]
		if !ok {
			share = &PlanShare{Plan: sub.Plan}
			byPlan[sub.Plan] = share
		}
		share.Count++
		share.MRRCents += sub.MRRCents
	}

	shares := make([]PlanShare, 0, len(byPlan))
	for _, share := range byPlan {
		if total > 0 {
			share.Percent = math.Round(10000*float64(share.Count)/float64(total)) / 100
		}
		shares = append(shares, *share)
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })
	return shares
}
