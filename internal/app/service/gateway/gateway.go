package gateway

import (
	"context"
	"fmt"

	types "github.com/trainwise/backend/pkg/types"
)

// VerifyStatus is the gateway's authoritative answer about a transaction.
// Transport failures are returned as errors, not as a status.
type VerifyStatus string

const (
	VerifyCompleted VerifyStatus = "completed"
	VerifyPending   VerifyStatus = "pending"
	VerifyFailed    VerifyStatus = "failed"
)

type CheckoutRequest struct {
	// TransactionID is our uuid for the purchase, carried through the
	// gateway round trip.
	TransactionID string
	AmountPaisa   int64
	ProductName   string
	// DodoProductID is the gateway-side catalog id for plan purchases.
	DodoProductID *string
	CustomerName  string
	CustomerEmail string
	SuccessURL    string
	FailureURL    string
}

// CheckoutResult is either a hosted redirect (RedirectURL set) or a signed
// form the client must POST (FormAction + FormFields set).
type CheckoutResult struct {
	RedirectURL string            `json:"redirect_url,omitempty"`
	FormAction  string            `json:"form_action,omitempty"`
	FormFields  map[string]string `json:"form_fields,omitempty"`
	// GatewayRef is the gateway-side handle needed later for Verify.
	GatewayRef string `json:"-"`
}

type VerifyRequest struct {
	TransactionID string
	AmountPaisa   int64
	GatewayRef    string
}

type PaymentGateway interface {
	Name() types.PaymentGateway
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
	Verify(ctx context.Context, req *VerifyRequest) (VerifyStatus, error)
}

// Registry resolves a configured adapter by gateway name.
type Registry struct {
	adapters map[types.PaymentGateway]PaymentGateway
}

func NewRegistry(gateways ...PaymentGateway) *Registry {
	m := make(map[types.PaymentGateway]PaymentGateway, len(gateways))
	for _, g := range gateways {
		m[g.Name()] = g
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(name types.PaymentGateway) (PaymentGateway, error) {
	g, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unsupported payment gateway: %s", name)
	}
	return g, nil
}

// paisaToRupees renders a paisa amount the way the Nepali gateways expect
// rupee amounts on the wire.
func paisaToRupees(paisa int64) string {
	if paisa%100 == 0 {
		return fmt.Sprintf("%d", paisa/100)
	}
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}
