package models

import "time"

// Subscription is a member's purchased membership period. EndDate is fixed
// at creation from the plan duration and never recomputed.
type Subscription struct {
	ID       string  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	MemberID string  `gorm:"column:member_id;type:uuid;not null;index:idx_subscription_member" json:"member_id"`
	PlanID   *string `gorm:"column:plan_id;type:uuid" json:"plan_id"`
	// Date-granular period; times are midnight UTC.
	StartDate time.Time `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"column:end_date;type:date;not null" json:"end_date"`
	IsActive  bool      `gorm:"column:is_active;default:true;index:idx_subscription_member" json:"is_active"`

	Member *User           `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Plan   *MembershipPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "member_subscription" }

// Current reports whether the subscription covers the given day.
func (s *Subscription) Current(day time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	d := day.Truncate(24 * time.Hour)
	return !s.StartDate.After(d) && !s.EndDate.Before(d)
}
