package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/trainwise/backend/docs"
	"github.com/trainwise/backend/internal/app/api/handlers"
	mw "github.com/trainwise/backend/internal/app/api/middleware"
	"github.com/trainwise/backend/internal/app/service/accounts"
	"github.com/trainwise/backend/internal/app/service/booking"
	"github.com/trainwise/backend/internal/app/service/checkout"
	"github.com/trainwise/backend/internal/app/service/membership"
	"github.com/trainwise/backend/internal/app/service/statistics"
	cfgpkg "github.com/trainwise/backend/pkg/config"
	metrics "github.com/trainwise/backend/pkg/metrics"
	types "github.com/trainwise/backend/pkg/types"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log    *zap.SugaredLogger
	Cfg    *cfgpkg.Config
	DB     *gorm.DB
	Tokens *accounts.TokenIssuer

	Accounts    *accounts.Service
	Memberships *membership.Service
	Bookings    *booking.Service
	Engine      checkout.Engine
	Stats       *statistics.Service
}

func registerRoutes(r *gin.Engine, d routeDeps) {
	// Prometheus metrics
	if d.Cfg != nil && d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			Subsystem: "trainwise",
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: d.Log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)

		d.Log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider-facing payment callbacks; the transaction id is the
	// capability, verification happens server-to-server.
	handlers.RegisterCallbackRoutes(pub, d.Engine)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(d.Log), mw.AccessLogMiddleware())

	// Public auth endpoints
	handlers.RegisterAuthRoutes(apiV1.Group("/auth"), d.Accounts)

	// Authenticated catalog
	catalog := apiV1.Group("/")
	catalog.Use(mw.AuthMiddleware(d.Tokens))
	handlers.RegisterCatalogRoutes(catalog, d.Memberships, d.Bookings)

	// Member endpoints
	member := apiV1.Group("/")
	member.Use(mw.AuthMiddleware(d.Tokens), mw.RequireRole(types.RoleMember))
	handlers.RegisterMemberRoutes(member, d.Accounts, d.Memberships, d.Bookings, d.DB)
	handlers.RegisterCheckoutRoutes(member, d.Engine)

	// Trainer endpoints
	trainer := apiV1.Group("/trainer")
	trainer.Use(mw.AuthMiddleware(d.Tokens), mw.RequireRole(types.RoleTrainer))
	handlers.RegisterTrainerRoutes(trainer, d.Bookings, d.Stats)

	// Admin endpoints
	admin := apiV1.Group("/admin")
	admin.Use(mw.AuthMiddleware(d.Tokens), mw.RequireRole(types.RoleAdmin))
	handlers.RegisterAdminRoutes(admin, d.DB, d.Accounts, d.Memberships, d.Stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
