package models

import "time"

// Booking is a committed private-class reservation with a trainer. Rows are
// created only after a verified payment; cancellation soft-deletes via
// IsActive so the audit trail survives.
type Booking struct {
	ID       string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	MemberID string `gorm:"column:member_id;type:uuid;not null;index" json:"member_id"`
	// TrainerID is nullable: an admin may unassign a trainer, and trainer
	// deletion must not cascade into bookings.
	TrainerID *string `gorm:"column:trainer_id;type:uuid;index:idx_booking_trainer_date" json:"trainer_id"`

	StartDate time.Time `gorm:"column:start_date;type:date;not null;index:idx_booking_trainer_date" json:"start_date"`
	// StartTime is a wall-clock "HH:MM" on StartDate.
	StartTime      string `gorm:"column:start_time;type:varchar(5);not null" json:"start_time"`
	DurationHours  int    `gorm:"column:duration_hours;not null;default:1" json:"duration_hours"`
	DurationMonths int    `gorm:"column:duration_months;not null;default:1" json:"duration_months"`
	// PricePaisa is the server-computed total in minor currency units.
	PricePaisa int64 `gorm:"column:price_paisa;type:bigint;not null" json:"price_paisa"`
	IsActive   bool  `gorm:"column:is_active;default:true" json:"is_active"`

	Member  *User `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Trainer *User `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "private_class" }

// EndTime is StartTime plus DurationHours, clamped to the same day
// ("24:00" at most). Cross-midnight spill is not modelled; see the
// scheduling conflict checker.
func (b *Booking) EndTime() string {
	h, m := splitClock(b.StartTime)
	h += b.DurationHours
	if h > 24 || (h == 24 && m > 0) {
		return "24:00"
	}
	return formatClock(h, m)
}

// EndDate advances StartDate by DurationMonths calendar months.
func (b *Booking) EndDate() time.Time {
	return b.StartDate.AddDate(0, b.DurationMonths, 0)
}

func splitClock(s string) (int, int) {
	var h, m int
	if len(s) >= 5 {
		h = int(s[0]-'0')*10 + int(s[1]-'0')
		m = int(s[3]-'0')*10 + int(s[4]-'0')
	}
	return h, m
}

func formatClock(h, m int) string {
	return string([]byte{byte('0' + h/10), byte('0' + h%10), ':', byte('0' + m/10), byte('0' + m%10)})
}
