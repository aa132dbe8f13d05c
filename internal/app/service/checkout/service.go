package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/gateway"
	"github.com/trainwise/backend/internal/app/service/membership"
	notification_log "github.com/trainwise/backend/internal/app/service/notification_log"
	"github.com/trainwise/backend/internal/app/service/pending"
	models "github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/logctx"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StageResult is handed back to the client to continue payment at the
// gateway.
type StageResult struct {
	TransactionID string                  `json:"transaction_id"`
	Gateway       types.PaymentGateway    `json:"gateway"`
	AmountPaisa   int64                   `json:"amount_paisa"`
	Checkout      *gateway.CheckoutResult `json:"checkout"`
}

// ConfirmResult describes what a verified callback committed.
type ConfirmResult struct {
	Kind           types.PurchaseKind `json:"kind"`
	PaymentID      string             `json:"payment_id"`
	SubscriptionID *string            `json:"subscription_id,omitempty"`
	BookingID      *string            `json:"booking_id,omitempty"`
}

// Engine is the payment-gated commit machine: purchases are staged in
// memory, confirmed against the gateway, and only then written durably.
type Engine interface {
	StageMembership(ctx context.Context, memberID, planID string, gw types.PaymentGateway) (*StageResult, error)
	StageBooking(ctx context.Context, memberID string, req *booking.Request, gw types.PaymentGateway) (*StageResult, error)
	ConfirmCallback(ctx context.Context, transactionID string, params map[string]string) (*ConfirmResult, error)
	AbortCallback(ctx context.Context, transactionID string) error
	DemoCommit(ctx context.Context, transactionID string) (*ConfirmResult, error)
	RetryCheckout(ctx context.Context, memberID, paymentID string, gw types.PaymentGateway) (*StageResult, error)
	CancelPendingPayment(ctx context.Context, memberID, paymentID string) error
}

type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	log         *zap.SugaredLogger
	store       *pending.Store
	gateways    *gateway.Registry
	memberships *membership.Service
	bookings    *booking.Service
	audit       *notification_log.Service
}

var _ Engine = (*Service)(nil)

func NewService(
	cfg *config.Config,
	db *gorm.DB,
	log *zap.SugaredLogger,
	store *pending.Store,
	gateways *gateway.Registry,
	memberships *membership.Service,
	bookings *booking.Service,
	audit *notification_log.Service,
) *Service {
	return &Service{
		cfg:         cfg,
		db:          db,
		log:         log,
		store:       store,
		gateways:    gateways,
		memberships: memberships,
		bookings:    bookings,
		audit:       audit,
	}
}

func (s *Service) member(ctx context.Context, memberID string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).
		Where("id = ? AND role = ? AND is_active = ?", memberID, types.RoleMember, true).
		First(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	return &u, nil
}

// StageMembership prices a plan purchase, places its period via the
// gap-finder and stages it. No durable rows are written until the gateway
// confirms.
func (s *Service) StageMembership(ctx context.Context, memberID, planID string, gw types.PaymentGateway) (*StageResult, error) {
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}
	plan, err := s.memberships.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	start, err := s.memberships.PlaceNewPeriod(ctx, memberID, plan, time.Now())
	if err != nil {
		return nil, err
	}

	planID = plan.ID
	tx := &pending.Transaction{
		ID:          tool.GenerateUUIDV7(),
		MemberID:    memberID,
		Kind:        types.PurchaseKindSubscription,
		Gateway:     gw,
		AmountPaisa: plan.PricePaisa,
		Subscription: &models.Subscription{
			MemberID:  memberID,
			PlanID:    &planID,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, plan.DurationDays()),
			IsActive:  true,
		},
	}
	return s.stage(ctx, tx, member, plan.PlanName, plan.DodoProductID)
}

// StageBooking validates and prices a private-class request, pre-checks the
// trainer's slot and stages the purchase.
func (s *Service) StageBooking(ctx context.Context, memberID string, req *booking.Request, gw types.PaymentGateway) (*StageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}
	trainer, err := s.bookings.Trainer(ctx, req.TrainerID)
	if err != nil {
		return nil, err
	}
	conflict, err := s.bookings.HasConflict(ctx, req)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, booking.ErrSlotConflict
	}

	price := booking.Price(s.cfg.Pricing.BaseRateRupees, req.DurationHours, req.DurationMonths, trainer.ExperienceLevel)
	trainerID := trainer.ID
	tx := &pending.Transaction{
		ID:          tool.GenerateUUIDV7(),
		MemberID:    memberID,
		Kind:        types.PurchaseKindPrivateClass,
		Gateway:     gw,
		AmountPaisa: price,
		Booking: &models.Booking{
			MemberID:       memberID,
			TrainerID:      &trainerID,
			StartDate:      req.StartDate,
			StartTime:      req.StartTime,
			DurationHours:  req.DurationHours,
			DurationMonths: req.DurationMonths,
			PricePaisa:     price,
			IsActive:       true,
		},
	}
	name := fmt.Sprintf("Private class with %s", trainer.FullName())
	return s.stage(ctx, tx, member, name, nil)
}

func (s *Service) stage(ctx context.Context, tx *pending.Transaction, member *models.User, productName string, dodoProductID *string) (*StageResult, error) {
	out := &StageResult{
		TransactionID: tx.ID,
		Gateway:       tx.Gateway,
		AmountPaisa:   tx.AmountPaisa,
	}
	if tx.Gateway == types.PaymentGatewayDemo {
		// Demo purchases never touch a provider; the client follows up on
		// the demo commit endpoint instead of a gateway redirect.
		if s.cfg.IsProd() {
			return nil, ErrDemoForbidden
		}
	} else {
		adapter, err := s.gateways.Get(tx.Gateway)
		if err != nil {
			return nil, err
		}
		result, err := adapter.Checkout(ctx, &gateway.CheckoutRequest{
			TransactionID: tx.ID,
			AmountPaisa:   tx.AmountPaisa,
			ProductName:   productName,
			DodoProductID: dodoProductID,
			CustomerName:  member.FullName(),
			CustomerEmail: member.Email,
			SuccessURL:    s.cfg.SuccessURL(tx.ID),
			FailureURL:    s.cfg.FailureURL(tx.ID),
		})
		if err != nil {
			return nil, err
		}
		tx.GatewayRef = result.GatewayRef
		out.Checkout = result
	}
	s.store.Stage(tx)
	logctx.FromCtx(ctx, s.log).Infow("purchase staged",
		"transaction_id", tx.ID, "member_id", tx.MemberID, "kind", tx.Kind,
		"gateway", tx.Gateway, "amount_paisa", tx.AmountPaisa)
	return out, nil
}

// ConfirmCallback handles a provider success callback. It verifies the
// payment server-side, claims the staged purchase and commits all durable
// rows in one transaction. Replays of an already-committed callback return
// ErrAlreadyProcessed.
func (s *Service) ConfirmCallback(ctx context.Context, transactionID string, params map[string]string) (*ConfirmResult, error) {
	logEntry := s.auditReceived(ctx, transactionID, params)

	tx, ok := s.store.Get(transactionID)
	if !ok {
		if s.hasCompletedPayment(ctx, transactionID) {
			s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandled, "replayed callback")
			return nil, ErrAlreadyProcessed
		}
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, "no staged transaction")
		return nil, ErrUnknownTransaction
	}

	if err := checkCallbackParams(tx, params); err != nil {
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, err.Error())
		s.store.Drop(transactionID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	adapter, err := s.gateways.Get(tx.Gateway)
	if err != nil {
		return nil, err
	}
	status, err := adapter.Verify(ctx, &gateway.VerifyRequest{
		TransactionID: transactionID,
		AmountPaisa:   tx.AmountPaisa,
		GatewayRef:    gatewayRef(tx, params),
	})
	if err != nil {
		if status == gateway.VerifyFailed {
			s.store.Drop(transactionID)
			s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, err.Error())
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		// Transport error. Keep the staged purchase so the callback can
		// be retried.
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, err.Error())
		return nil, fmt.Errorf("gateway verification unavailable: %w", err)
	}
	switch status {
	case gateway.VerifyPending:
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusReceived, "gateway still pending")
		return nil, ErrPaymentPending
	case gateway.VerifyFailed:
		s.store.Drop(transactionID)
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, "gateway reported failure")
		return nil, ErrPaymentFailed
	}

	claimed, ok := s.store.Take(transactionID)
	if !ok {
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandled, "claimed by concurrent callback")
		return nil, ErrAlreadyProcessed
	}
	result, err := s.commit(ctx, claimed)
	if err != nil {
		if !errors.Is(err, booking.ErrSlotConflict) {
			s.store.Restore(claimed)
		}
		s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandleFailed, err.Error())
		return nil, err
	}
	s.auditResult(ctx, logEntry, models.PaymentNotificationLogStatusHandled, "committed")
	logctx.FromCtx(ctx, s.log).Infow("purchase committed",
		"transaction_id", transactionID, "member_id", claimed.MemberID,
		"kind", claimed.Kind, "payment_id", result.PaymentID)
	return result, nil
}

// commit writes the Subscription-or-Booking plus its Payment atomically.
// Bookings re-validate the trainer slot under a row lock so that of two
// racing purchases the first committed wins.
func (s *Service) commit(ctx context.Context, tx *pending.Transaction) (*ConfirmResult, error) {
	out := &ConfirmResult{Kind: tx.Kind}
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		payment := &models.Payment{
			ID:          tool.GenerateUUIDV7(),
			UID:         tx.ID,
			AmountPaisa: tx.AmountPaisa,
			Method:      tx.Gateway,
			Status:      types.PaymentStatusCompleted,
			PaymentDate: time.Now(),
		}

		switch {
		case tx.PaymentID != "":
			// Retry of an existing pending payment: settle it and
			// reactivate what it paid for.
			var existing models.Payment
			if err := dbtx.Where("id = ? AND payment_status = ?", tx.PaymentID, types.PaymentStatusPending).
				First(&existing).Error; err != nil {
				return fmt.Errorf("failed to load pending payment: %w", err)
			}
			if err := dbtx.Model(&existing).Updates(map[string]any{
				"payment_status": types.PaymentStatusCompleted,
				"payment_method": tx.Gateway,
				"payment_date":   time.Now(),
			}).Error; err != nil {
				return fmt.Errorf("failed to settle payment: %w", err)
			}
			if existing.SubscriptionID != nil {
				if err := dbtx.Model(&models.Subscription{}).
					Where("id = ?", *existing.SubscriptionID).
					Update("is_active", true).Error; err != nil {
					return fmt.Errorf("failed to activate subscription: %w", err)
				}
			}
			if existing.BookingID != nil {
				if err := dbtx.Model(&models.Booking{}).
					Where("id = ?", *existing.BookingID).
					Update("is_active", true).Error; err != nil {
					return fmt.Errorf("failed to activate booking: %w", err)
				}
			}
			out.PaymentID = existing.ID
			out.SubscriptionID = existing.SubscriptionID
			out.BookingID = existing.BookingID
			return nil

		case tx.Kind == types.PurchaseKindSubscription:
			sub := tx.Subscription
			sub.ID = tool.GenerateUUIDV7()
			if err := dbtx.Create(sub).Error; err != nil {
				return fmt.Errorf("failed to create subscription: %w", err)
			}
			payment.SubscriptionID = &sub.ID
			out.SubscriptionID = &sub.ID

		case tx.Kind == types.PurchaseKindPrivateClass:
			b := tx.Booking
			if err := booking.CreateValidated(ctx, dbtx, b); err != nil {
				return err
			}
			payment.BookingID = &b.ID
			out.BookingID = &b.ID

		default:
			return fmt.Errorf("unknown purchase kind: %s", tx.Kind)
		}

		if err := dbtx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		out.PaymentID = payment.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AbortCallback handles a provider failure callback or an abandoned
// checkout. Nothing durable is committed on this path.
func (s *Service) AbortCallback(ctx context.Context, transactionID string) error {
	s.store.Drop(transactionID)
	if err := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("uid = ? AND payment_status = ?", transactionID, types.PaymentStatusPending).
		Update("payment_status", types.PaymentStatusFailed).Error; err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("checkout aborted", "transaction_id", transactionID)
	return nil
}

// DemoCommit skips gateway verification and commits a staged purchase with
// the demo method. Disabled outside dev environments.
func (s *Service) DemoCommit(ctx context.Context, transactionID string) (*ConfirmResult, error) {
	if s.cfg.IsProd() {
		return nil, ErrDemoForbidden
	}
	tx, ok := s.store.Take(transactionID)
	if !ok {
		if s.hasCompletedPayment(ctx, transactionID) {
			return nil, ErrAlreadyProcessed
		}
		return nil, ErrUnknownTransaction
	}
	tx.Gateway = types.PaymentGatewayDemo
	result, err := s.commit(ctx, tx)
	if err != nil {
		if !errors.Is(err, booking.ErrSlotConflict) {
			s.store.Restore(tx)
		}
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("demo purchase committed",
		"transaction_id", transactionID, "member_id", tx.MemberID, "kind", tx.Kind)
	return result, nil
}

// RetryCheckout re-initiates payment for a durable Pending payment. The
// payment's uid is reused as the transaction id so settlement lands on the
// same row.
func (s *Service) RetryCheckout(ctx context.Context, memberID, paymentID string, gw types.PaymentGateway) (*StageResult, error) {
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}
	payment, err := s.ownedPayment(ctx, memberID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != types.PaymentStatusPending {
		return nil, fmt.Errorf("payment %s is not pending", paymentID)
	}

	kind := types.PurchaseKindSubscription
	productName := "Membership renewal"
	if payment.BookingID != nil {
		kind = types.PurchaseKindPrivateClass
		productName = "Private class"
	}
	tx := &pending.Transaction{
		ID:          payment.UID,
		MemberID:    memberID,
		Kind:        kind,
		Gateway:     gw,
		AmountPaisa: payment.AmountPaisa,
		PaymentID:   payment.ID,
	}
	return s.stage(ctx, tx, member, productName, nil)
}

// CancelPendingPayment cancels a still-Pending payment and deactivates
// whatever it was paying for. The provider is never contacted: a Pending
// payment was never charged.
func (s *Service) CancelPendingPayment(ctx context.Context, memberID, paymentID string) error {
	payment, err := s.ownedPayment(ctx, memberID, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != types.PaymentStatusPending {
		return fmt.Errorf("payment %s is not pending", paymentID)
	}
	s.store.Drop(payment.UID)

	err = s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		if err := dbtx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("payment_status", types.PaymentStatusCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel payment: %w", err)
		}
		if payment.SubscriptionID != nil {
			if err := dbtx.Model(&models.Subscription{}).Where("id = ?", *payment.SubscriptionID).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate subscription: %w", err)
			}
		}
		if payment.BookingID != nil {
			if err := dbtx.Model(&models.Booking{}).Where("id = ?", *payment.BookingID).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate booking: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logctx.FromCtx(ctx, s.log).Infow("pending payment cancelled",
		"payment_id", paymentID, "member_id", memberID)
	return nil
}

func (s *Service) ownedPayment(ctx context.Context, memberID, paymentID string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).
		Preload("Subscription").Preload("Booking").
		First(&p, "id = ?", paymentID).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	owner := ""
	if p.Subscription != nil {
		owner = p.Subscription.MemberID
	} else if p.Booking != nil {
		owner = p.Booking.MemberID
	}
	if owner != memberID {
		return nil, fmt.Errorf("payment %s does not belong to this member", paymentID)
	}
	return &p, nil
}

func (s *Service) hasCompletedPayment(ctx context.Context, transactionID string) bool {
	var n int64
	s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("uid = ? AND payment_status = ?", transactionID, types.PaymentStatusCompleted).
		Count(&n)
	return n > 0
}

// checkCallbackParams rejects redirect parameters that contradict the
// staged purchase before spending a verification round trip.
func checkCallbackParams(tx *pending.Transaction, params map[string]string) error {
	if orderID, ok := params["purchase_order_id"]; ok && orderID != tx.ID {
		return fmt.Errorf("purchase_order_id mismatch")
	}
	if uid, ok := params["transaction_uuid"]; ok && uid != tx.ID {
		return fmt.Errorf("transaction_uuid mismatch")
	}
	return nil
}

// gatewayRef prefers the staged gateway handle and falls back to the
// redirect's pidx when staging happened before this process restarted a
// claim cycle.
func gatewayRef(tx *pending.Transaction, params map[string]string) string {
	if tx.GatewayRef != "" {
		return tx.GatewayRef
	}
	return params["pidx"]
}

func (s *Service) auditReceived(ctx context.Context, transactionID string, params map[string]string) *models.PaymentNotificationLog {
	gw := types.PaymentGateway("")
	if tx, ok := s.store.Get(transactionID); ok {
		gw = tx.Gateway
	}
	return s.audit.Received(ctx, gw, transactionID, params)
}

func (s *Service) auditResult(ctx context.Context, entry *models.PaymentNotificationLog, status models.PaymentNotificationLogStatus, detail string) {
	s.audit.Result(ctx, entry, status, detail)
}
