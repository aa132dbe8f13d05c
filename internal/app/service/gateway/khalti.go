package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trainwise/backend/pkg/config"
	types "github.com/trainwise/backend/pkg/types"
)

// Khalti implements the Khalti ePayment (KPG-2) flow: initiate returns a
// hosted payment_url plus a pidx, and lookup by pidx is the authoritative
// confirmation. All Khalti amounts are in paisa.
type Khalti struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

func NewKhalti(cfg *config.Config) *Khalti {
	return &Khalti{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.Khalti.BaseURL,
		secretKey:  cfg.Khalti.SecretKey,
	}
}

func (k *Khalti) Name() types.PaymentGateway { return types.PaymentGatewayKhalti }

type khaltiInitiateRequest struct {
	ReturnURL         string             `json:"return_url"`
	WebsiteURL        string             `json:"website_url"`
	Amount            int64              `json:"amount"`
	PurchaseOrderID   string             `json:"purchase_order_id"`
	PurchaseOrderName string             `json:"purchase_order_name"`
	CustomerInfo      khaltiCustomerInfo `json:"customer_info"`
}

type khaltiCustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

func (k *Khalti) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if k.secretKey == "" {
		return nil, fmt.Errorf("khalti: secret key not configured")
	}
	body, err := json.Marshal(khaltiInitiateRequest{
		ReturnURL:         req.SuccessURL,
		WebsiteURL:        req.SuccessURL,
		Amount:            req.AmountPaisa,
		PurchaseOrderID:   req.TransactionID,
		PurchaseOrderName: req.ProductName,
		CustomerInfo:      khaltiCustomerInfo{Name: req.CustomerName, Email: req.CustomerEmail},
	})
	if err != nil {
		return nil, fmt.Errorf("khalti: failed to marshal initiate request: %w", err)
	}

	var initResp khaltiInitiateResponse
	if _, err := k.post(ctx, "/epayment/initiate/", body, &initResp); err != nil {
		return nil, err
	}
	if initResp.PaymentURL == "" || initResp.Pidx == "" {
		return nil, fmt.Errorf("khalti: initiate response missing pidx or payment_url")
	}
	return &CheckoutResult{
		RedirectURL: initResp.PaymentURL,
		GatewayRef:  initResp.Pidx,
	}, nil
}

type khaltiLookupResponse struct {
	Pidx        string `json:"pidx"`
	TotalAmount int64  `json:"total_amount"`
	Status      string `json:"status"`
	Refunded    bool   `json:"refunded"`
}

func (k *Khalti) Verify(ctx context.Context, req *VerifyRequest) (VerifyStatus, error) {
	if req.GatewayRef == "" {
		return "", fmt.Errorf("khalti: missing pidx for lookup")
	}
	body, err := json.Marshal(map[string]string{"pidx": req.GatewayRef})
	if err != nil {
		return "", fmt.Errorf("khalti: failed to marshal lookup request: %w", err)
	}

	var lookup khaltiLookupResponse
	code, err := k.post(ctx, "/epayment/lookup/", body, &lookup)
	if err != nil {
		// A 4xx or an undecodable 200 means the provider rejected the
		// lookup itself; only 5xx and connection errors are retryable.
		if code == http.StatusOK || (code >= http.StatusBadRequest && code < http.StatusInternalServerError) {
			return VerifyFailed, err
		}
		return "", err
	}

	switch lookup.Status {
	case "Completed":
		if lookup.TotalAmount != req.AmountPaisa {
			return VerifyFailed, fmt.Errorf("khalti: amount mismatch, expected %d got %d", req.AmountPaisa, lookup.TotalAmount)
		}
		if lookup.Refunded {
			return VerifyFailed, nil
		}
		return VerifyCompleted, nil
	case "Pending", "Initiated":
		return VerifyPending, nil
	default:
		return VerifyFailed, nil
	}
}

// post performs an authenticated JSON request and reports the HTTP status
// code alongside any error so callers can tell a provider rejection from a
// transport failure.
func (k *Khalti) post(ctx context.Context, endpoint string, body []byte, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("khalti: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+k.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("khalti: failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("khalti: unexpected status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("khalti: failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
