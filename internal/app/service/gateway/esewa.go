package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/trainwise/backend/pkg/config"
	types "github.com/trainwise/backend/pkg/types"
)

// Esewa implements the eSewa ePay v2 contract: the client POSTs a signed
// form to eSewa, and we confirm server-side through the transaction status
// lookup.
type Esewa struct {
	httpClient  *http.Client
	baseURL     string
	productCode string
	secretKey   string
}

func NewEsewa(cfg *config.Config) *Esewa {
	return &Esewa{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     cfg.Esewa.BaseURL,
		productCode: cfg.Esewa.ProductCode,
		secretKey:   cfg.Esewa.SecretKey,
	}
}

func (e *Esewa) Name() types.PaymentGateway { return types.PaymentGatewayEsewa }

// Sign computes the base64 HMAC-SHA256 over the signed field triple in the
// order eSewa mandates.
func (e *Esewa) Sign(totalAmount, transactionUUID string) string {
	payload := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, e.productCode)
	mac := hmac.New(sha256.New, []byte(e.secretKey))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (e *Esewa) Checkout(_ context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if e.secretKey == "" {
		return nil, fmt.Errorf("esewa: secret key not configured")
	}
	total := paisaToRupees(req.AmountPaisa)
	return &CheckoutResult{
		FormAction: e.baseURL + "/api/epay/main/v2/form",
		FormFields: map[string]string{
			"amount":                  total,
			"tax_amount":              "0",
			"total_amount":            total,
			"transaction_uuid":        req.TransactionID,
			"product_code":            e.productCode,
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"success_url":             req.SuccessURL,
			"failure_url":             req.FailureURL,
			"signed_field_names":      "total_amount,transaction_uuid,product_code",
			"signature":               e.Sign(total, req.TransactionID),
		},
	}, nil
}

type esewaStatusResponse struct {
	ProductCode     string      `json:"product_code"`
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     json.Number `json:"total_amount"`
	Status          string      `json:"status"`
	RefID           string      `json:"ref_id"`
}

func (e *Esewa) Verify(ctx context.Context, req *VerifyRequest) (VerifyStatus, error) {
	q := url.Values{}
	q.Set("product_code", e.productCode)
	q.Set("total_amount", paisaToRupees(req.AmountPaisa))
	q.Set("transaction_uuid", req.TransactionID)

	endpoint := e.baseURL + "/api/epay/transaction/status/?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("esewa: failed to create status request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("esewa: failed to perform status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("esewa: unexpected status code %d, body: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			// The provider rejected the lookup itself; treat as a failed
			// verification rather than a retryable transport problem.
			return VerifyFailed, err
		}
		return "", err
	}

	var status esewaStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return VerifyFailed, fmt.Errorf("esewa: failed to decode status response: %w", err)
	}

	switch status.Status {
	case "COMPLETE":
		// The lookup echo is the only trusted figure; a COMPLETE answer
		// for a different amount or transaction is a failed verification.
		if status.TransactionUUID != "" && status.TransactionUUID != req.TransactionID {
			return VerifyFailed, fmt.Errorf("esewa: transaction_uuid mismatch, expected %s got %s",
				req.TransactionID, status.TransactionUUID)
		}
		total, err := status.TotalAmount.Float64()
		if err != nil {
			return VerifyFailed, fmt.Errorf("esewa: unparseable total_amount %q", status.TotalAmount.String())
		}
		if paisa := int64(math.Round(total * 100)); paisa != req.AmountPaisa {
			return VerifyFailed, fmt.Errorf("esewa: amount mismatch, expected %d paisa got %d",
				req.AmountPaisa, paisa)
		}
		return VerifyCompleted, nil
	case "PENDING", "AMBIGUOUS":
		return VerifyPending, nil
	default:
		return VerifyFailed, nil
	}
}
