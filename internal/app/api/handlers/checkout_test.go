package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/checkout"
	"github.com/trainwise/backend/internal/app/service/gateway"
	"github.com/trainwise/backend/pkg/response"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// stubEngine scripts checkout.Engine responses so the HTTP layer can be
// tested without a database or gateway.
type stubEngine struct {
	stageResult   *checkout.StageResult
	stageErr      error
	confirmResult *checkout.ConfirmResult
	confirmErr    error
	abortErr      error

	confirmedID   string
	confirmedArgs map[string]string
	abortedID     string
}

func (s *stubEngine) StageMembership(_ context.Context, _, _ string, _ types.PaymentGateway) (*checkout.StageResult, error) {
	return s.stageResult, s.stageErr
}

func (s *stubEngine) StageBooking(_ context.Context, _ string, _ *booking.Request, _ types.PaymentGateway) (*checkout.StageResult, error) {
	return s.stageResult, s.stageErr
}

func (s *stubEngine) ConfirmCallback(_ context.Context, transactionID string, params map[string]string) (*checkout.ConfirmResult, error) {
	s.confirmedID = transactionID
	s.confirmedArgs = params
	return s.confirmResult, s.confirmErr
}

func (s *stubEngine) AbortCallback(_ context.Context, transactionID string) error {
	s.abortedID = transactionID
	return s.abortErr
}

func (s *stubEngine) DemoCommit(_ context.Context, _ string) (*checkout.ConfirmResult, error) {
	return s.confirmResult, s.confirmErr
}

func (s *stubEngine) RetryCheckout(_ context.Context, _, _ string, _ types.PaymentGateway) (*checkout.StageResult, error) {
	return s.stageResult, s.stageErr
}

func (s *stubEngine) CancelPendingPayment(_ context.Context, _, _ string) error {
	return s.abortErr
}

var _ checkout.Engine = (*stubEngine)(nil)

func newCallbackRouter(engine checkout.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterCallbackRoutes(r, engine)
	return r
}

func newCheckoutRouter(engine checkout.Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterCheckoutRoutes(r, engine)
	return r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.APIResponse[json.RawMessage] {
	t.Helper()
	var env response.APIResponse[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestCallbackSuccessCommits(t *testing.T) {
	subID := "sub-1"
	engine := &stubEngine{confirmResult: &checkout.ConfirmResult{
		Kind:           types.PurchaseKindSubscription,
		PaymentID:      "pay-1",
		SubscriptionID: &subID,
	}}
	r := newCallbackRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback/success/tx-1?pidx=p1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "tx-1", engine.confirmedID)
	require.Equal(t, "p1", engine.confirmedArgs["pidx"])

	var res checkout.ConfirmResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, "pay-1", res.PaymentID)
	require.NotNil(t, res.SubscriptionID)
	require.Equal(t, "sub-1", *res.SubscriptionID)
}

func TestCallbackSuccessReplayIsNoOp(t *testing.T) {
	engine := &stubEngine{confirmErr: checkout.ErrAlreadyProcessed}
	r := newCallbackRouter(engine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/success/tx-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Contains(t, string(env.Data), "already processed")
}

func TestCallbackSuccessUnknownTransaction(t *testing.T) {
	engine := &stubEngine{confirmErr: checkout.ErrUnknownTransaction}
	r := newCallbackRouter(engine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/success/tx-gone", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestCallbackSuccessSlotConflict(t *testing.T) {
	engine := &stubEngine{confirmErr: booking.ErrSlotConflict}
	r := newCallbackRouter(engine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/success/tx-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestCallbackFailureAborts(t *testing.T) {
	engine := &stubEngine{}
	r := newCallbackRouter(engine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/failure/tx-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeOK, env.Code)
	require.Equal(t, "tx-1", engine.abortedID)
}

func TestStageMembershipAcceptsDemoGateway(t *testing.T) {
	engine := &stubEngine{stageResult: &checkout.StageResult{
		TransactionID: "tx-1",
		Gateway:       types.PaymentGatewayDemo,
		AmountPaisa:   450000,
	}}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/membership",
		strings.NewReader(`{"plan_id":"plan-1","gateway":"demo"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeOK, env.Code)

	var res checkout.StageResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Nil(t, res.Checkout)
}

func TestStageMembershipDemoForbiddenInProduction(t *testing.T) {
	engine := &stubEngine{stageErr: checkout.ErrDemoForbidden}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/membership",
		strings.NewReader(`{"plan_id":"plan-1","gateway":"demo"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestStageMembershipRejectsUnknownGateway(t *testing.T) {
	engine := &stubEngine{stageResult: &checkout.StageResult{TransactionID: "tx-1"}}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/membership",
		strings.NewReader(`{"plan_id":"plan-1","gateway":"paypal"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestStageMembershipReturnsCheckout(t *testing.T) {
	engine := &stubEngine{stageResult: &checkout.StageResult{
		TransactionID: "tx-1",
		Gateway:       types.PaymentGatewayKhalti,
		AmountPaisa:   450000,
		Checkout:      &gateway.CheckoutResult{RedirectURL: "https://pay.test/p1"},
	}}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/membership",
		strings.NewReader(`{"plan_id":"plan-1","gateway":"khalti"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeOK, env.Code)

	var res checkout.StageResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, "tx-1", res.TransactionID)
	require.Equal(t, "https://pay.test/p1", res.Checkout.RedirectURL)
}

func TestStageBookingRejectsBadDate(t *testing.T) {
	engine := &stubEngine{stageResult: &checkout.StageResult{TransactionID: "tx-1"}}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/booking",
		strings.NewReader(`{"trainer_id":"t-1","start_date":"01/10/2026","start_time":"10:00","duration_hours":2,"duration_months":3,"gateway":"esewa"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestStageBookingSlotConflict(t *testing.T) {
	engine := &stubEngine{stageErr: booking.ErrSlotConflict}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/booking",
		strings.NewReader(`{"trainer_id":"t-1","start_date":"2026-10-01","start_time":"10:00","duration_hours":2,"duration_months":3,"gateway":"esewa"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.Equal(t, response.APIResponseCodeBadRequest, env.Code)
}

func TestDemoCommitForbiddenInProduction(t *testing.T) {
	engine := &stubEngine{confirmErr: checkout.ErrDemoForbidden}
	r := newCheckoutRouter(engine)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout/demo/tx-1", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
}
