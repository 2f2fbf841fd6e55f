// Package server exposes the financial engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/invoice"
	invoicedomain "github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/internal/observability"
	obslogger "github.com/smallbiznis/innkeep/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/innkeep/internal/observability/metrics"
	obstracing "github.com/smallbiznis/innkeep/internal/observability/tracing"
	"github.com/smallbiznis/innkeep/internal/promotion"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/internal/providers/pdf"
	"github.com/smallbiznis/innkeep/internal/ratelimit"
	"github.com/smallbiznis/innkeep/internal/refundpolicy"
	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

var Module = fx.Module("http.server",
	invoice.Module,
	promotion.Module,
	refundpolicy.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log.Named("http"), obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	invoiceSvc      invoicedomain.Service
	promotionSvc    promotiondomain.Service
	refundPolicySvc refunddomain.Service
	pdfProvider     pdf.Provider
	validateLimiter *ratelimit.ValidateLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	InvoiceSvc      invoicedomain.Service
	PromotionSvc    promotiondomain.Service
	RefundPolicySvc refunddomain.Service
	PDFProvider     pdf.Provider
	ValidateLimiter *ratelimit.ValidateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		invoiceSvc:      p.InvoiceSvc,
		promotionSvc:    p.PromotionSvc,
		refundPolicySvc: p.RefundPolicySvc,
		pdfProvider:     p.PDFProvider,
		validateLimiter: p.ValidateLimiter,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	invoices := api.Group("/invoices")
	invoices.POST("", s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.POST("/merge", s.MergeInvoices)
	invoices.GET("/:id", s.GetInvoiceByID)
	invoices.DELETE("/:id", s.DeleteInvoice)
	invoices.GET("/:id/pdf", s.RenderInvoicePDF)
	invoices.POST("/:id/discounts", s.ApplyDiscount)
	invoices.DELETE("/:id/discounts/:discountId", s.RemoveDiscount)
	invoices.POST("/:id/promotions", s.ApplyPromotion)
	invoices.POST("/:id/refund-policy", s.ApplyRefundPolicy)
	invoices.POST("/:id/split", s.SplitInvoice)
	invoices.POST("/:id/mark-paid", s.MarkInvoicePaid)
	invoices.POST("/:id/cancel", s.CancelInvoice)
	invoices.PATCH("/:id/status", s.UpdateInvoiceStatus)
	invoices.POST("/:id/sync-payments", s.SyncInvoicePayments)

	promotions := api.Group("/promotions")
	promotions.GET("", s.ListPromotions)
	promotions.POST("", s.CreatePromotion)
	promotions.GET("/:id", s.GetPromotionByID)
	promotions.POST("/validate", s.rateLimitValidate, s.ValidatePromotion)

	policies := api.Group("/refund-policies")
	policies.GET("", s.ListRefundPolicies)
	policies.POST("", s.CreateRefundPolicy)
	policies.GET("/:id", s.GetRefundPolicyByID)

	admin := s.engine.Group("/admin")
	admin.POST("/invoices/overdue-sweep", s.SweepOverdueInvoices)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
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
