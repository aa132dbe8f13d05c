package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const esewaTestKey = "8gBm/:&EnhH.1/q"

func newTestEsewa(baseURL string, client *http.Client) *Esewa {
	if client == nil {
		client = http.DefaultClient
	}
	return &Esewa{
		httpClient:  client,
		baseURL:     baseURL,
		productCode: "EPAYTEST",
		secretKey:   esewaTestKey,
	}
}

func TestEsewaSign(t *testing.T) {
	e := newTestEsewa("", nil)

	// Reference signature from the eSewa ePay v2 integration docs.
	require.Equal(t, "5DZywcrTKD0gia/rsSMcrRHmJl+4Tbol6S+lWgdJ94E=", e.Sign("100", "11-201-13"))
	require.Equal(t, "3oi7TzCSYdFjLLMRohdxVTcU7wFNJmJqrpCNHugyneI=", e.Sign("4500", "tx-1"))
}

func TestEsewaCheckoutBuildsSignedForm(t *testing.T) {
	e := newTestEsewa("https://rc-epay.esewa.com.np", nil)

	res, err := e.Checkout(context.Background(), &CheckoutRequest{
		TransactionID: "tx-1",
		AmountPaisa:   450000,
		SuccessURL:    "https://app.test/callback/success/tx-1",
		FailureURL:    "https://app.test/callback/failure/tx-1",
	})
	require.NoError(t, err)

	require.Equal(t, "https://rc-epay.esewa.com.np/api/epay/main/v2/form", res.FormAction)
	require.Empty(t, res.RedirectURL)
	require.Equal(t, "4500", res.FormFields["amount"])
	require.Equal(t, "4500", res.FormFields["total_amount"])
	require.Equal(t, "tx-1", res.FormFields["transaction_uuid"])
	require.Equal(t, "EPAYTEST", res.FormFields["product_code"])
	require.Equal(t, "total_amount,transaction_uuid,product_code", res.FormFields["signed_field_names"])
	require.Equal(t, "3oi7TzCSYdFjLLMRohdxVTcU7wFNJmJqrpCNHugyneI=", res.FormFields["signature"])
}

func TestEsewaCheckoutRequiresSecret(t *testing.T) {
	e := newTestEsewa("https://rc-epay.esewa.com.np", nil)
	e.secretKey = ""

	_, err := e.Checkout(context.Background(), &CheckoutRequest{TransactionID: "tx-1", AmountPaisa: 100})
	require.Error(t, err)
}

func TestEsewaVerify(t *testing.T) {
	cases := []struct {
		name   string
		status string
		want   VerifyStatus
	}{
		{"complete", "COMPLETE", VerifyCompleted},
		{"pending", "PENDING", VerifyPending},
		{"ambiguous", "AMBIGUOUS", VerifyPending},
		{"not found", "NOT_FOUND", VerifyFailed},
		{"canceled", "CANCELED", VerifyFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/api/epay/transaction/status/", r.URL.Path)
				require.Equal(t, "EPAYTEST", r.URL.Query().Get("product_code"))
				require.Equal(t, "tx-1", r.URL.Query().Get("transaction_uuid"))
				require.Equal(t, "4500", r.URL.Query().Get("total_amount"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"product_code":"EPAYTEST","transaction_uuid":"tx-1","total_amount":4500,"status":"` + tc.status + `","ref_id":"0001"}`))
			}))
			defer server.Close()

			e := newTestEsewa(server.URL, server.Client())
			got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEsewaVerifyAmountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"product_code":"EPAYTEST","transaction_uuid":"tx-1","total_amount":1,"status":"COMPLETE","ref_id":"0001"}`))
	}))
	defer server.Close()

	e := newTestEsewa(server.URL, server.Client())
	got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
	require.Error(t, err)
	require.Equal(t, VerifyFailed, got)
}

func TestEsewaVerifyTransactionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"product_code":"EPAYTEST","transaction_uuid":"tx-other","total_amount":4500,"status":"COMPLETE","ref_id":"0001"}`))
	}))
	defer server.Close()

	e := newTestEsewa(server.URL, server.Client())
	got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
	require.Error(t, err)
	require.Equal(t, VerifyFailed, got)
}

func TestEsewaVerifyTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	e := newTestEsewa(server.URL, server.Client())
	got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
	require.Error(t, err)
	require.Equal(t, VerifyStatus(""), got)
}

func TestEsewaVerifyProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := newTestEsewa(server.URL, server.Client())
	got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
	require.Error(t, err)
	require.Equal(t, VerifyFailed, got)
}

func TestEsewaVerifyMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	e := newTestEsewa(server.URL, server.Client())
	got, err := e.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000})
	require.Error(t, err)
	require.Equal(t, VerifyFailed, got)
}

func TestPaisaToRupees(t *testing.T) {
	require.Equal(t, "4500", paisaToRupees(450000))
	require.Equal(t, "100", paisaToRupees(10000))
	require.Equal(t, "45.50", paisaToRupees(4550))
	require.Equal(t, "0.05", paisaToRupees(5))
	require.Equal(t, "0", paisaToRupees(0))
}
