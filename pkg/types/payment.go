package types

// PaymentGateway identifies one of the supported payment providers.
type PaymentGateway string

const (
	PaymentGatewayEsewa  PaymentGateway = "esewa"
	PaymentGatewayKhalti PaymentGateway = "khalti"
	PaymentGatewayDodo   PaymentGateway = "dodo"
	// PaymentGatewayDemo bypasses staging and verification; only usable
	// outside production.
	PaymentGatewayDemo PaymentGateway = "demo"
)

func (g PaymentGateway) Valid() bool {
	switch g {
	case PaymentGatewayEsewa, PaymentGatewayKhalti, PaymentGatewayDodo, PaymentGatewayDemo:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle status of a Payment row. Pending is the
// only non-terminal status; a terminal status never changes again.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// PurchaseKind distinguishes the two payable products.
type PurchaseKind string

const (
	PurchaseKindSubscription PurchaseKind = "subscription"
	PurchaseKindPrivateClass PurchaseKind = "private_class"
)
