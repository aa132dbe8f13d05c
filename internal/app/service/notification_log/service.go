package notification_log

import (
	"context"
	"encoding/json"
	"time"

	"github.com/trainwise/backend/internal/models"
	"github.com/trainwise/backend/pkg/logctx"
	"github.com/trainwise/backend/pkg/tool"
	types "github.com/trainwise/backend/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service keeps the gateway callback audit trail: one "received" row per
// callback, updated to a terminal status once handled.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Received records an inbound callback before any handling. Audit failures
// are logged, never propagated: the callback must still be processed.
func (s *Service) Received(ctx context.Context, gw types.PaymentGateway, transactionID string, params map[string]string) *models.PaymentNotificationLog {
	data, _ := json.Marshal(params)
	entry := &models.PaymentNotificationLog{
		ID:               tool.GenerateUUIDV7(),
		Gateway:          gw,
		TraceID:          logctx.TraceID(ctx),
		TransactionID:    transactionID,
		NotificationTime: time.Now(),
		Data:             datatypes.JSON(data),
		Status:           models.PaymentNotificationLogStatusReceived,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
	}
	return entry
}

// Result finalises a received entry with the handling outcome.
func (s *Service) Result(ctx context.Context, entry *models.PaymentNotificationLog, status models.PaymentNotificationLogStatus, detail string) {
	if entry == nil {
		return
	}
	result, _ := json.Marshal(map[string]string{"detail": detail})
	r := datatypes.JSON(result)
	if err := s.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"status": status,
		"result": &r,
	}).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to update notification log: %v", err)
	}
}

var Module = fx.Options(
	fx.Provide(New),
)
