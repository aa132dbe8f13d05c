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

// Dodo implements Dodo Payments hosted checkout sessions. Plan purchases
// reference a gateway-side product id; ad-hoc purchases carry an explicit
// amount on the cart line.
type Dodo struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewDodo(cfg *config.Config) *Dodo {
	return &Dodo{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.Dodo.BaseURL,
		apiKey:     cfg.Dodo.APIKey,
	}
}

func (d *Dodo) Name() types.PaymentGateway { return types.PaymentGatewayDodo }

type dodoCartItem struct {
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Amount    *int64 `json:"amount,omitempty"`
}

type dodoSessionRequest struct {
	ProductCart []dodoCartItem    `json:"product_cart"`
	ReturnURL   string            `json:"return_url"`
	Metadata    map[string]string `json:"metadata"`
	Customer    *dodoCustomer     `json:"customer,omitempty"`
}

type dodoCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type dodoSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

func (d *Dodo) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("dodo: api key not configured")
	}
	item := dodoCartItem{Quantity: 1}
	if req.DodoProductID != nil && *req.DodoProductID != "" {
		item.ProductID = *req.DodoProductID
	} else {
		amount := req.AmountPaisa
		item.Amount = &amount
	}

	body, err := json.Marshal(dodoSessionRequest{
		ProductCart: []dodoCartItem{item},
		ReturnURL:   req.SuccessURL,
		Metadata:    map[string]string{"transaction_id": req.TransactionID},
		Customer:    &dodoCustomer{Name: req.CustomerName, Email: req.CustomerEmail},
	})
	if err != nil {
		return nil, fmt.Errorf("dodo: failed to marshal session request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/checkouts", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("dodo: failed to create request: %w", err)
	}
	d.setHeaders(httpReq)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dodo: failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dodo: unexpected status code %d, body: %s", resp.StatusCode, string(respBody))
	}

	var session dodoSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("dodo: failed to decode session response: %w", err)
	}
	if session.CheckoutURL == "" || session.SessionID == "" {
		return nil, fmt.Errorf("dodo: session response missing session_id or checkout_url")
	}
	return &CheckoutResult{
		RedirectURL: session.CheckoutURL,
		GatewayRef:  session.SessionID,
	}, nil
}

type dodoSessionStatus struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func (d *Dodo) Verify(ctx context.Context, req *VerifyRequest) (VerifyStatus, error) {
	if req.GatewayRef == "" {
		return "", fmt.Errorf("dodo: missing session id for verification")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/checkouts/"+req.GatewayRef, nil)
	if err != nil {
		return "", fmt.Errorf("dodo: failed to create status request: %w", err)
	}
	d.setHeaders(httpReq)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dodo: failed to perform status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("dodo: unexpected status code %d, body: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			// Provider rejection, not a retryable transport problem.
			return VerifyFailed, err
		}
		return "", err
	}

	var status dodoSessionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return VerifyFailed, fmt.Errorf("dodo: failed to decode status response: %w", err)
	}

	switch status.Status {
	case "succeeded":
		return VerifyCompleted, nil
	case "open", "processing":
		return VerifyPending, nil
	default:
		return VerifyFailed, nil
	}
}

func (d *Dodo) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
