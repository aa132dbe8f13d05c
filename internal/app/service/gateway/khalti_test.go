package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestKhalti(server *httptest.Server) *Khalti {
	return &Khalti{
		httpClient: server.Client(),
		baseURL:    server.URL,
		secretKey:  "test-secret",
	}
}

func TestKhaltiCheckout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/epayment/initiate/", r.URL.Path)
		require.Equal(t, "Key test-secret", r.Header.Get("Authorization"))

		var body khaltiInitiateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, int64(450000), body.Amount)
		require.Equal(t, "tx-1", body.PurchaseOrderID)
		require.Equal(t, "Gold Plan", body.PurchaseOrderName)
		require.Equal(t, "Asha", body.CustomerInfo.Name)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuDYP","payment_url":"https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuDYP"}`))
	}))
	defer server.Close()

	k := newTestKhalti(server)
	res, err := k.Checkout(context.Background(), &CheckoutRequest{
		TransactionID: "tx-1",
		AmountPaisa:   450000,
		ProductName:   "Gold Plan",
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		SuccessURL:    "https://app.test/callback/success/tx-1",
	})
	require.NoError(t, err)
	require.Equal(t, "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuDYP", res.RedirectURL)
	require.Equal(t, "bZQLD9wRVWo4CdESSfuDYP", res.GatewayRef)
}

func TestKhaltiCheckoutMissingPaymentURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pidx":"","payment_url":""}`))
	}))
	defer server.Close()

	k := newTestKhalti(server)
	_, err := k.Checkout(context.Background(), &CheckoutRequest{TransactionID: "tx-1", AmountPaisa: 100})
	require.Error(t, err)
}

func TestKhaltiVerify(t *testing.T) {
	cases := []struct {
		name    string
		resp    string
		want    VerifyStatus
		wantErr bool
	}{
		{"completed", `{"pidx":"p1","total_amount":450000,"status":"Completed","refunded":false}`, VerifyCompleted, false},
		{"amount mismatch", `{"pidx":"p1","total_amount":100,"status":"Completed","refunded":false}`, VerifyFailed, true},
		{"refunded", `{"pidx":"p1","total_amount":450000,"status":"Completed","refunded":true}`, VerifyFailed, false},
		{"pending", `{"pidx":"p1","total_amount":450000,"status":"Pending"}`, VerifyPending, false},
		{"initiated", `{"pidx":"p1","total_amount":450000,"status":"Initiated"}`, VerifyPending, false},
		{"expired", `{"pidx":"p1","total_amount":450000,"status":"Expired"}`, VerifyFailed, false},
		{"user canceled", `{"pidx":"p1","total_amount":450000,"status":"User canceled"}`, VerifyFailed, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/epayment/lookup/", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "p1", body["pidx"])
				w.Write([]byte(tc.resp))
			}))
			defer server.Close()

			k := newTestKhalti(server)
			got, err := k.Verify(context.Background(), &VerifyRequest{
				TransactionID: "tx-1",
				AmountPaisa:   450000,
				GatewayRef:    "p1",
			})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, got)
		})
	}
}

func TestKhaltiVerifyProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Not found."}`))
	}))
	defer server.Close()

	k := newTestKhalti(server)
	got, err := k.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000, GatewayRef: "p1"})
	require.Error(t, err)
	require.Equal(t, VerifyFailed, got)
}

func TestKhaltiVerifyServerErrorIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	k := newTestKhalti(server)
	got, err := k.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 450000, GatewayRef: "p1"})
	require.Error(t, err)
	require.Equal(t, VerifyStatus(""), got)
}

func TestKhaltiVerifyRequiresPidx(t *testing.T) {
	k := &Khalti{httpClient: http.DefaultClient, baseURL: "http://127.0.0.1:0", secretKey: "s"}
	_, err := k.Verify(context.Background(), &VerifyRequest{TransactionID: "tx-1", AmountPaisa: 100})
	require.Error(t, err)
}
