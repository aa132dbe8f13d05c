package models

import (
	"time"

	"github.com/trainwise/backend/pkg/types"
)

// Payment is the append-style money record. UID doubles as the gateway
// transaction correlation key; at most one of SubscriptionID/BookingID is
// set. Terminal statuses are never mutated again.
type Payment struct {
	ID  string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	UID string `gorm:"column:uid;type:uuid;not null;uniqueIndex" json:"uid"`

	SubscriptionID *string `gorm:"column:subscription_id;type:uuid;index" json:"subscription_id"`
	BookingID      *string `gorm:"column:booking_id;type:uuid;index" json:"booking_id"`

	AmountPaisa         int64 `gorm:"column:amount_paisa;type:bigint;not null" json:"amount_paisa"`
	TaxAmountPaisa      int64 `gorm:"column:tax_amount_paisa;type:bigint;default:0" json:"tax_amount_paisa"`
	ServiceChargePaisa  int64 `gorm:"column:service_charge_paisa;type:bigint;default:0" json:"service_charge_paisa"`
	DeliveryChargePaisa int64 `gorm:"column:delivery_charge_paisa;type:bigint;default:0" json:"delivery_charge_paisa"`

	Method      types.PaymentGateway `gorm:"column:payment_method;type:varchar(16);not null" json:"payment_method"`
	Status      types.PaymentStatus  `gorm:"column:payment_status;type:varchar(16);not null;index" json:"payment_status"`
	PaymentDate time.Time            `gorm:"column:payment_date;not null" json:"payment_date"`

	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
	Booking      *Booking      `gorm:"foreignKey:BookingID" json:"booking,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }
