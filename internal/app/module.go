package app

import (
	"time"

	"github.com/trainwise/backend/internal/app/api/server"
	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/checkout"
	"github.com/trainwise/backend/internal/app/service/gateway"
	"github.com/trainwise/backend/internal/app/service/membership"
	notificationlog "github.com/trainwise/backend/internal/app/service/notification_log"
	"github.com/trainwise/backend/internal/app/service/pending"
	"github.com/trainwise/backend/internal/app/service/statistics"
	"github.com/trainwise/backend/internal/platform/db"
	"github.com/trainwise/backend/pkg/config"
	"github.com/trainwise/backend/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	accounts.Module,
	membership.Module,
	booking.Module,
	pending.Module,
	notificationlog.Module,
	gateway.Module,
	checkout.Module,
	statistics.Module,
)
