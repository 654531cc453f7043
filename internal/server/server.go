package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	agingdomain "github.com/smallbiznis/mensalidade/internal/aging/domain"
	billingdashboarddomain "github.com/smallbiznis/mensalidade/internal/billingdashboard/domain"
	clientdomain "github.com/smallbiznis/mensalidade/internal/client/domain"
	collectiondomain "github.com/smallbiznis/mensalidade/internal/collection/domain"
	"github.com/smallbiznis/mensalidade/internal/config"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
	messagelogdomain "github.com/smallbiznis/mensalidade/internal/messagelog/domain"
	"github.com/smallbiznis/mensalidade/internal/observability"
	obsmiddleware "github.com/smallbiznis/mensalidade/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mensalidade/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mensalidade/internal/observability/tracing"
	plandomain "github.com/smallbiznis/mensalidade/internal/plan/domain"
	"github.com/smallbiznis/mensalidade/internal/providers/whatsapp"
	subscriptiondomain "github.com/smallbiznis/mensalidade/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
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

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if obsCfg.Debug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

// RunHTTP serves the engine on the configured address for the app lifetime.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clientSvc       clientdomain.Service
	planSvc         plandomain.Service
	installmentSvc  installmentdomain.Service
	subscriptionSvc subscriptiondomain.Service
	dashboardSvc    billingdashboarddomain.Service
	agingSvc        agingdomain.Service
	collectionSvc   collectiondomain.Service
	messageLogSvc   messagelogdomain.Service
	statusTracker   *whatsapp.StatusTracker
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	ClientSvc       clientdomain.Service
	PlanSvc         plandomain.Service
	InstallmentSvc  installmentdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	DashboardSvc    billingdashboarddomain.Service
	AgingSvc        agingdomain.Service
	CollectionSvc   collectiondomain.Service
	MessageLogSvc   messagelogdomain.Service
	StatusTracker   *whatsapp.StatusTracker `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clientSvc:       p.ClientSvc,
		planSvc:         p.PlanSvc,
		installmentSvc:  p.InstallmentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		dashboardSvc:    p.DashboardSvc,
		agingSvc:        p.AgingSvc,
		collectionSvc:   p.CollectionSvc,
		messageLogSvc:   p.MessageLogSvc,
		statusTracker:   p.StatusTracker,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/v1")

	// -------- Plans --------
	api.POST("/plans", s.CreatePlan)
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlanByID)
	api.DELETE("/plans/:id", s.DeactivatePlan)

	// -------- Clients --------
	api.POST("/clients", s.CreateClient)
	api.GET("/clients", s.ListClients)
	api.GET("/clients/:id", s.GetClientByID)
	api.DELETE("/clients/:id", s.DeleteClient)
	api.POST("/clients/:id/subscription", s.ActivateSubscription)
	api.DELETE("/clients/:id/subscription", s.CancelSubscription)
	api.GET("/clients/:id/installments", s.ListClientInstallments)

	// -------- Installments --------
	api.POST("/installments", s.CreateInstallment)
	api.GET("/installments/:id", s.GetInstallmentByID)
	api.PATCH("/installments/:id/status", s.SetInstallmentStatus)
	api.POST("/installments/:id/payments", s.RecordInstallmentPayment)
	api.POST("/installments/:id/cancel-send", s.CancelInstallmentSend)
	api.POST("/installments/:id/mark-sent", s.MarkInstallmentSent)

	// -------- Reporting --------
	api.GET("/dashboard/metrics", s.GetDashboardMetrics)
	api.GET("/aging", s.GetAging)

	// -------- Collection --------
	api.GET("/collection/queue", s.GetCollectionQueue)
	api.POST("/collection/dispatch", s.DispatchReminders)
	api.GET("/message-logs", s.ListMessageLogs)

	// -------- Messaging --------
	api.GET("/messaging/status", s.GetMessagingStatus)
	api.GET("/messaging/status/stream", s.StreamMessagingStatus)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
