package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/gateway"
	"github.com/trainwise/backend/internal/app/service/membership"
	"github.com/trainwise/backend/internal/app/service/notification_log"
	"github.com/trainwise/backend/internal/app/service/pending"
	"github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/tool"
	"github.com/trainwise/backend/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// scriptedGateway stands in for a provider adapter so the engine can be
// exercised against every verification outcome.
type scriptedGateway struct {
	name      types.PaymentGateway
	status    gateway.VerifyStatus
	verifyErr error
	verified  int
}

func (g *scriptedGateway) Name() types.PaymentGateway { return g.name }

func (g *scriptedGateway) Checkout(_ context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	return &gateway.CheckoutResult{
		RedirectURL: "https://pay.test/" + req.TransactionID,
		GatewayRef:  "ref-" + req.TransactionID,
	}, nil
}

func (g *scriptedGateway) Verify(_ context.Context, _ *gateway.VerifyRequest) (gateway.VerifyStatus, error) {
	g.verified++
	return g.status, g.verifyErr
}

type engineHarness struct {
	svc      *Service
	db       *gorm.DB
	gw       *scriptedGateway
	memberID string
	planID   string
}

func newEngineHarness(t *testing.T) *engineHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", tool.GenerateUUIDV7())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.MembershipPlan{}, &models.Subscription{},
		&models.Booking{}, &models.Payment{}, &models.PaymentNotificationLog{},
	))

	cfg := &config.Config{Env: config.EnvDev, BaseURL: "https://app.test"}
	log := zap.NewNop().Sugar()
	gw := &scriptedGateway{name: types.PaymentGatewayEsewa, status: gateway.VerifyCompleted}

	svc := NewService(cfg, db, log,
		pending.NewStore(cfg, log),
		gateway.NewRegistry(gw),
		membership.NewService(cfg, db, log),
		booking.NewService(cfg, db, log),
		notification_log.New(db, log),
	)

	member := &models.User{
		ID:        tool.GenerateUUIDV7(),
		Username:  "asha",
		Email:     "asha@example.com",
		FirstName: "Asha",
		Role:      types.RoleMember,
		IsActive:  true,
	}
	require.NoError(t, db.Create(member).Error)

	plan := &models.MembershipPlan{
		ID:             tool.GenerateUUIDV7(),
		PlanName:       "Gold",
		DurationMonths: 1,
		PricePaisa:     450000,
	}
	require.NoError(t, db.Create(plan).Error)

	return &engineHarness{svc: svc, db: db, gw: gw, memberID: member.ID, planID: plan.ID}
}

func (h *engineHarness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func (h *engineHarness) stageMembership(t *testing.T, gw types.PaymentGateway) *StageResult {
	t.Helper()
	res, err := h.svc.StageMembership(context.Background(), h.memberID, h.planID, gw)
	require.NoError(t, err)
	return res
}

func TestStageMembershipWritesNothingDurable(t *testing.T) {
	h := newEngineHarness(t)

	res := h.stageMembership(t, types.PaymentGatewayEsewa)
	require.NotEmpty(t, res.TransactionID)
	require.Equal(t, int64(450000), res.AmountPaisa)
	require.NotNil(t, res.Checkout)
	require.Equal(t, "https://pay.test/"+res.TransactionID, res.Checkout.RedirectURL)

	require.Zero(t, h.count(t, &models.Subscription{}))
	require.Zero(t, h.count(t, &models.Payment{}))
}

func TestConfirmCommitsOnceAndReplays(t *testing.T) {
	h := newEngineHarness(t)
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	res, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, map[string]string{})
	require.NoError(t, err)
	require.Equal(t, types.PurchaseKindSubscription, res.Kind)
	require.NotNil(t, res.SubscriptionID)

	var payment models.Payment
	require.NoError(t, h.db.First(&payment, "uid = ?", staged.TransactionID).Error)
	require.Equal(t, types.PaymentStatusCompleted, payment.Status)
	require.Equal(t, types.PaymentGatewayEsewa, payment.Method)
	require.Equal(t, int64(450000), payment.AmountPaisa)
	require.Equal(t, res.SubscriptionID, payment.SubscriptionID)

	var sub models.Subscription
	require.NoError(t, h.db.First(&sub, "id = ?", *res.SubscriptionID).Error)
	require.True(t, sub.IsActive)
	require.Equal(t, h.memberID, sub.MemberID)

	// A replayed callback is a no-op and commits nothing twice.
	_, err = h.svc.ConfirmCallback(context.Background(), staged.TransactionID, map[string]string{})
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	require.Equal(t, int64(1), h.count(t, &models.Subscription{}))
	require.Equal(t, int64(1), h.count(t, &models.Payment{}))
}

func TestConfirmUnknownTransaction(t *testing.T) {
	h := newEngineHarness(t)

	_, err := h.svc.ConfirmCallback(context.Background(), tool.GenerateUUIDV7(), nil)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestConfirmPendingKeepsStaged(t *testing.T) {
	h := newEngineHarness(t)
	h.gw.status = gateway.VerifyPending
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	_, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.ErrorIs(t, err, ErrPaymentPending)
	require.Zero(t, h.count(t, &models.Payment{}))

	// The purchase stays staged; a later callback can still commit it.
	h.gw.status = gateway.VerifyCompleted
	_, err = h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), h.count(t, &models.Payment{}))
}

func TestConfirmFailureDiscardsStaged(t *testing.T) {
	h := newEngineHarness(t)
	h.gw.status = gateway.VerifyFailed
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	_, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.ErrorIs(t, err, ErrPaymentFailed)
	require.Zero(t, h.count(t, &models.Subscription{}))
	require.Zero(t, h.count(t, &models.Payment{}))

	_, err = h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestConfirmTransportErrorKeepsStaged(t *testing.T) {
	h := newEngineHarness(t)
	h.gw.status = ""
	h.gw.verifyErr = fmt.Errorf("connection reset")
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	_, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPaymentFailed)
	require.Zero(t, h.count(t, &models.Payment{}))

	h.gw.status = gateway.VerifyCompleted
	h.gw.verifyErr = nil
	_, err = h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.NoError(t, err)
}

func TestConfirmParamMismatchDiscardsStaged(t *testing.T) {
	h := newEngineHarness(t)
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	_, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID,
		map[string]string{"transaction_uuid": "someone-elses"})
	require.ErrorIs(t, err, ErrPaymentFailed)
	require.Zero(t, h.count(t, &models.Payment{}))

	_, err = h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestAbortLeavesNoDurableRows(t *testing.T) {
	h := newEngineHarness(t)
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)

	require.NoError(t, h.svc.AbortCallback(context.Background(), staged.TransactionID))
	require.Zero(t, h.count(t, &models.Subscription{}))
	require.Zero(t, h.count(t, &models.Payment{}))

	_, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}

func TestDemoStageSkipsProviderAndCommits(t *testing.T) {
	h := newEngineHarness(t)

	staged := h.stageMembership(t, types.PaymentGatewayDemo)
	require.Nil(t, staged.Checkout)
	require.Zero(t, h.count(t, &models.Subscription{}))
	require.Zero(t, h.count(t, &models.Payment{}))

	res, err := h.svc.DemoCommit(context.Background(), staged.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, res.SubscriptionID)
	require.Zero(t, h.gw.verified)

	var payment models.Payment
	require.NoError(t, h.db.First(&payment, "uid = ?", staged.TransactionID).Error)
	require.Equal(t, types.PaymentGatewayDemo, payment.Method)
	require.Equal(t, types.PaymentStatusCompleted, payment.Status)

	_, err = h.svc.DemoCommit(context.Background(), staged.TransactionID)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestDemoForbiddenInProduction(t *testing.T) {
	h := newEngineHarness(t)
	h.svc.cfg.Env = config.EnvProd

	_, err := h.svc.StageMembership(context.Background(), h.memberID, h.planID, types.PaymentGatewayDemo)
	require.ErrorIs(t, err, ErrDemoForbidden)

	h.svc.cfg.Env = config.EnvDev
	staged := h.stageMembership(t, types.PaymentGatewayEsewa)
	h.svc.cfg.Env = config.EnvProd
	_, err = h.svc.DemoCommit(context.Background(), staged.TransactionID)
	require.ErrorIs(t, err, ErrDemoForbidden)
}

func TestRetrySettlesPendingPayment(t *testing.T) {
	h := newEngineHarness(t)

	sub := &models.Subscription{
		ID:        tool.GenerateUUIDV7(),
		MemberID:  h.memberID,
		StartDate: tool.DateOnly(time.Now()),
		EndDate:   tool.DateOnly(time.Now()).AddDate(0, 0, 30),
		IsActive:  false,
	}
	require.NoError(t, h.db.Create(sub).Error)
	pay := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UID:            tool.GenerateUUIDV7(),
		SubscriptionID: &sub.ID,
		AmountPaisa:    450000,
		Method:         types.PaymentGatewayEsewa,
		Status:         types.PaymentStatusPending,
		PaymentDate:    time.Now(),
	}
	require.NoError(t, h.db.Create(pay).Error)

	h.gw.name = types.PaymentGatewayKhalti
	h.svc.gateways = gateway.NewRegistry(h.gw)
	staged, err := h.svc.RetryCheckout(context.Background(), h.memberID, pay.ID, types.PaymentGatewayKhalti)
	require.NoError(t, err)
	require.Equal(t, pay.UID, staged.TransactionID)

	res, err := h.svc.ConfirmCallback(context.Background(), staged.TransactionID, nil)
	require.NoError(t, err)
	require.Equal(t, pay.ID, res.PaymentID)

	// The existing row is settled in place; nothing new is created.
	require.Equal(t, int64(1), h.count(t, &models.Payment{}))
	var settled models.Payment
	require.NoError(t, h.db.First(&settled, "id = ?", pay.ID).Error)
	require.Equal(t, types.PaymentStatusCompleted, settled.Status)
	require.Equal(t, types.PaymentGatewayKhalti, settled.Method)

	var reactivated models.Subscription
	require.NoError(t, h.db.First(&reactivated, "id = ?", sub.ID).Error)
	require.True(t, reactivated.IsActive)
}

func TestCancelPendingPaymentCascades(t *testing.T) {
	h := newEngineHarness(t)

	sub := &models.Subscription{
		ID:        tool.GenerateUUIDV7(),
		MemberID:  h.memberID,
		StartDate: tool.DateOnly(time.Now()),
		EndDate:   tool.DateOnly(time.Now()).AddDate(0, 0, 30),
		IsActive:  true,
	}
	require.NoError(t, h.db.Create(sub).Error)
	pay := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UID:            tool.GenerateUUIDV7(),
		SubscriptionID: &sub.ID,
		AmountPaisa:    450000,
		Method:         types.PaymentGatewayEsewa,
		Status:         types.PaymentStatusPending,
		PaymentDate:    time.Now(),
	}
	require.NoError(t, h.db.Create(pay).Error)

	require.NoError(t, h.svc.CancelPendingPayment(context.Background(), h.memberID, pay.ID))

	var cancelled models.Payment
	require.NoError(t, h.db.First(&cancelled, "id = ?", pay.ID).Error)
	require.Equal(t, types.PaymentStatusCancelled, cancelled.Status)

	var deactivated models.Subscription
	require.NoError(t, h.db.First(&deactivated, "id = ?", sub.ID).Error)
	require.False(t, deactivated.IsActive)

	// Cancelling someone else's payment is refused.
	require.Error(t, h.svc.CancelPendingPayment(context.Background(), tool.GenerateUUIDV7(), pay.ID))
}
