package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/logctx"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// Plan loads a membership plan template.
func (s *Service) Plan(ctx context.Context, planID string) (*models.MembershipPlan, error) {
	var p models.MembershipPlan
	if err := s.db.WithContext(ctx).First(&p, "id = ?", planID).Error; err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return &p, nil
}

// Plans lists all plan templates.
func (s *Service) Plans(ctx context.Context) ([]*models.MembershipPlan, error) {
	var out []*models.MembershipPlan
	if err := s.db.WithContext(ctx).Order("duration_months, price_paisa").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return out, nil
}

// SavePlan creates or updates a plan template (admin).
func (s *Service) SavePlan(ctx context.Context, p *models.MembershipPlan) error {
	if p.PlanName == "" || p.DurationMonths <= 0 || p.PricePaisa < 0 {
		return fmt.Errorf("invalid plan: name, positive duration and non-negative price required")
	}
	if p.ID == "" {
		p.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// DeletePlan removes a plan template (admin). Existing subscriptions keep a
// nullable plan reference.
func (s *Service) DeletePlan(ctx context.Context, planID string) error {
	if err := s.db.WithContext(ctx).Delete(&models.MembershipPlan{}, "id = ?", planID).Error; err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

// ActiveForMember returns the member's active subscriptions sorted by start
// date ascending — the gap-finder's required input order.
func (s *Service) ActiveForMember(ctx context.Context, memberID string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	if err := s.db.WithContext(ctx).
		Where("member_id = ? AND is_active = ?", memberID, true).
		Order("start_date").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	return out, nil
}

// PlaceNewPeriod resolves the start date for a new purchase of the given
// plan via the gap-finder over the member's current active subscriptions.
func (s *Service) PlaceNewPeriod(ctx context.Context, memberID string, plan *models.MembershipPlan, today time.Time) (time.Time, error) {
	active, err := s.ActiveForMember(ctx, memberID)
	if err != nil {
		return time.Time{}, err
	}
	return FindStartDate(tool.DateOnly(today), plan.DurationDays(), active), nil
}

// MembershipOverview is the my-memberships listing plus days remaining on
// the currently running subscription.
type MembershipOverview struct {
	Subscriptions []*models.Subscription `json:"subscriptions"`
	// DaysLeft is nil when no active subscription has started yet.
	DaysLeft *int `json:"days_left"`
}

func (s *Service) Overview(ctx context.Context, memberID string, today time.Time) (*MembershipOverview, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Preload("Plan").
		Where("member_id = ?", memberID).
		Order("start_date").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := &MembershipOverview{Subscriptions: subs}
	day := tool.DateOnly(today)

	// Latest active subscription that has already started.
	var current *models.Subscription
	for _, sub := range subs {
		if sub.Current(day) && (current == nil || sub.EndDate.After(current.EndDate)) {
			current = sub
		}
	}
	if current != nil {
		days := int(current.EndDate.Sub(day) / (24 * time.Hour))
		out.DaysLeft = &days
	}
	return out, nil
}

// Cancel deactivates a member's subscription and cascades any still-Pending
// payment to Cancelled. The row survives for audit.
func (s *Service) Cancel(ctx context.Context, memberID, subscriptionID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where("id = ? AND member_id = ? AND is_active = ?", subscriptionID, memberID, true).
			First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no active subscription %s for this member", subscriptionID)
			}
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		if err := tx.Model(&sub).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate subscription: %w", err)
		}
		if err := tx.Model(&models.Payment{}).
			Where("subscription_id = ? AND payment_status = ?", sub.ID, types.PaymentStatusPending).
			Update("payment_status", types.PaymentStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel pending payments: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription cancelled", "subscription_id", subscriptionID, "member_id", memberID)
	return nil
}
