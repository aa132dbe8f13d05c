package models

import "time"

// MembershipPlan is the plan template members subscribe to.
type MembershipPlan struct {
	ID             string  `gorm:"column:id;primary_key;type:uuid" json:"id"`
	PlanName       string  `gorm:"column:plan_name;type:varchar(50);not null" json:"plan_name"`
	DurationMonths int     `gorm:"column:duration_months;not null" json:"duration_months"`
	// PricePaisa is the plan price in minor currency units.
	PricePaisa  int64   `gorm:"column:price_paisa;type:bigint;not null" json:"price_paisa"`
	Description *string `gorm:"column:description;type:text" json:"description"`
	// DodoProductID links the plan to a hosted-checkout product on the
	// global provider; nil when the plan is not sold there.
	DodoProductID *string `gorm:"column:dodo_product_id;type:varchar(64)" json:"dodo_product_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MembershipPlan) TableName() string { return "membership_plan" }

// DurationDays approximates the plan length with 30-day months; the same
// approximation fixes Subscription.EndDate at purchase time.
func (p *MembershipPlan) DurationDays() int {
	return 30 * p.DurationMonths
}
