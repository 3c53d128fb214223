package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/leadbilling/internal/audit"
	auditdomain "github.com/smallbiznis/leadbilling/internal/audit/domain"
	"github.com/smallbiznis/leadbilling/internal/config"
	"github.com/smallbiznis/leadbilling/internal/i18n"
	"github.com/smallbiznis/leadbilling/internal/invoice"
	invoicedomain "github.com/smallbiznis/leadbilling/internal/invoice/domain"
	"github.com/smallbiznis/leadbilling/internal/lead"
	leaddomain "github.com/smallbiznis/leadbilling/internal/lead/domain"
	"github.com/smallbiznis/leadbilling/internal/observability"
	obsmiddleware "github.com/smallbiznis/leadbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/leadbilling/internal/observability/metrics"
	obstracing "github.com/smallbiznis/leadbilling/internal/observability/tracing"
	"github.com/smallbiznis/leadbilling/internal/partner"
	partnerdomain "github.com/smallbiznis/leadbilling/internal/partner/domain"
	"github.com/smallbiznis/leadbilling/internal/ratelimit"
	"github.com/smallbiznis/leadbilling/internal/reconciliation"
	reconciliationdomain "github.com/smallbiznis/leadbilling/internal/reconciliation/domain"
	"github.com/smallbiznis/leadbilling/internal/settings"
	settingsdomain "github.com/smallbiznis/leadbilling/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(i18n.New),
	fx.Provide(registerGin),
	audit.Module,
	partner.Module,
	lead.Module,
	invoice.Module,
	settings.Module,
	ratelimit.Module,
	reconciliation.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, translator *i18n.Translator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
		SlowRequest:     obsCfg.SlowRequestThreshold,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(Language(translator))
	r.Use(ErrorHandlingMiddleware(translator))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, translator *i18n.Translator) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, translator)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine            *gin.Engine
	cfg               config.Config
	billing           *config.BillingConfigHolder
	translator        *i18n.Translator
	auditSvc          auditdomain.Service
	partnerSvc        partnerdomain.Service
	leadSvc           leaddomain.Service
	invoiceSvc        invoicedomain.Service
	settingsSvc       settingsdomain.Service
	reconciliationSvc reconciliationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	Billing           *config.BillingConfigHolder
	Translator        *i18n.Translator
	AuditSvc          auditdomain.Service
	PartnerSvc        partnerdomain.Service
	LeadSvc           leaddomain.Service
	InvoiceSvc        invoicedomain.Service
	SettingsSvc       settingsdomain.Service
	ReconciliationSvc reconciliationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		billing:           p.Billing,
		translator:        p.Translator,
		auditSvc:          p.AuditSvc,
		partnerSvc:        p.PartnerSvc,
		leadSvc:           p.LeadSvc,
		invoiceSvc:        p.InvoiceSvc,
		settingsSvc:       p.SettingsSvc,
		reconciliationSvc: p.ReconciliationSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", ForwardAuthorization())

	partners := api.Group("/partners")
	{
		partners.GET("", s.ListPartners)
		partners.GET("/:id/periods/:year/:month", s.GetPeriodView)
		partners.POST("/:id/periods/:year/:month/invoices", s.GenerateInvoice)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("", s.ListInvoices)
		invoices.GET("/:id", s.GetInvoiceByID)
		invoices.GET("/:id/download", s.DownloadInvoice)
		invoices.POST("/:id/mark-paid", s.MarkInvoicePaid)
		invoices.POST("/:id/mark-unpaid", s.MarkInvoiceUnpaid)
	}

	api.POST("/leads/:id/partners/:partnerId/reject-cancellation", s.RejectCancellation)

	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.UpdateSettings)

	api.GET("/audit-logs", s.ListAuditLogs)
}
