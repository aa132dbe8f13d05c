package models

import "time"

// WeightLog tracks a member's weight over time, one entry per user per day.
type WeightLog struct {
	ID   string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UserID string `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uq_weight_user_date" json:"user_id"`
	Date time.Time `gorm:"column:date;type:date;not null;uniqueIndex:uq_weight_user_date" json:"date"`
	// WeightKG in kilograms.
	WeightKG float64 `gorm:"column:weight_kg;type:decimal(5,2);not null" json:"weight_kg"`
	Notes    *string `gorm:"column:notes;type:text" json:"notes"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (WeightLog) TableName() string { return "weight_log" }

// BMI computes body-mass index from the owning user's height; 0 when the
// height is unknown.
func (w *WeightLog) BMI(heightCM *float64) float64 {
	if heightCM == nil || *heightCM <= 0 {
		return 0
	}
	hm := *heightCM / 100
	return w.WeightKG / (hm * hm)
}
