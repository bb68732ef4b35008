package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/talentloop/internal/config"
	entitlementdomain "github.com/smallbiznis/talentloop/internal/entitlement/domain"
	forumdomain "github.com/smallbiznis/talentloop/internal/forum/domain"
	"github.com/smallbiznis/talentloop/internal/observability"
	obsmiddleware "github.com/smallbiznis/talentloop/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/talentloop/internal/observability/metrics"
	obstracing "github.com/smallbiznis/talentloop/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"github.com/smallbiznis/talentloop/internal/requestmetrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

type EngineParams struct {
	fx.In

	ObsCfg         observability.Config
	HTTPMetrics    *obsmetrics.HTTPMetrics `optional:"true"`
	RequestMetrics *requestmetrics.Service `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           p.ObsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(p.HTTPMetrics))
	if p.RequestMetrics != nil {
		r.Use(requestmetrics.GinMiddleware(p.RequestMetrics))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine         *gin.Engine
	cfg            config.Config
	paymentSvc     paymentdomain.Service
	forumSvc       forumdomain.Service
	entitlementSvc entitlementdomain.Service
	requestMetrics *requestmetrics.Service
	forumLimiter   *ratelimit.ForumWriteLimiter
	obsMetrics     *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	PaymentSvc     paymentdomain.Service
	ForumSvc       forumdomain.Service
	EntitlementSvc entitlementdomain.Service
	RequestMetrics *requestmetrics.Service      `optional:"true"`
	ForumLimiter   *ratelimit.ForumWriteLimiter `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		paymentSvc:     p.PaymentSvc,
		forumSvc:       p.ForumSvc,
		entitlementSvc: p.EntitlementSvc,
		requestMetrics: p.RequestMetrics,
		forumLimiter:   p.ForumLimiter,
		obsMetrics:     p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Payments --------
	api.POST("/payments/webhooks/:provider", s.HandlePaymentWebhook)

	// -------- Entitlements --------
	api.GET("/entitlements/:email", s.GetEntitlement)

	// -------- Forum --------
	forum := api.Group("/forum")
	{
		write := s.ForumWriteRateLimit()

		forum.GET("/posts", s.ListPosts)
		forum.POST("/posts", write, s.CreatePost)
		forum.GET("/posts/:id", s.GetPost)
		forum.PATCH("/posts/:id", write, s.UpdatePost)
		forum.DELETE("/posts/:id", write, s.DeletePost)
		forum.PUT("/posts/:id/category", write, s.MovePostCategory)
		forum.POST("/posts/:id/like", write, s.TogglePostLike)
		forum.POST("/posts/:id/replies", write, s.CreateReply)
		forum.DELETE("/posts/:id/replies/:replyId", write, s.DeleteReply)
		forum.POST("/posts/:id/replies/:replyId/like", write, s.ToggleReplyLike)
		forum.GET("/stats", s.GetForumStats)
		forum.GET("/categories", s.ListCategories)
	}

	// -------- Request metrics --------
	api.GET("/metrics/requests", s.GetRequestMetrics)
	api.DELETE("/metrics/requests", s.ResetRequestMetrics)
}
