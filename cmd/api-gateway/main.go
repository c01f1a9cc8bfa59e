package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/statusgraph/api/swagger"
	"github.com/noah-isme/statusgraph/internal/handler"
	"github.com/noah-isme/statusgraph/internal/middleware"
	"github.com/noah-isme/statusgraph/internal/repository"
	"github.com/noah-isme/statusgraph/internal/service"
	"github.com/noah-isme/statusgraph/pkg/cache"
	"github.com/noah-isme/statusgraph/pkg/config"
	"github.com/noah-isme/statusgraph/pkg/database"
	"github.com/noah-isme/statusgraph/pkg/jobs"
	"github.com/noah-isme/statusgraph/pkg/logger"
	corsmiddleware "github.com/noah-isme/statusgraph/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/statusgraph/pkg/middleware/requestid"
	"github.com/noah-isme/statusgraph/pkg/pubsub"
)

// @title Statusgraph API
// @version 0.1.0
// @description Conversation context and quote approval for social statuses
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type handlers struct {
	context *handler.ContextHandler
	quotes  *handler.QuoteHandler
	policy  *handler.PolicyHandler
	ops     *handler.MetricsHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	publisher, err := newPublisher(cfg, rdb, logr)
	if err != nil {
		return err
	}
	defer publisher.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	statusRepo := repository.NewStatusRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Context.CacheTTL, logr, cfg.Context.CacheEnabled)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	distributionSvc := service.NewDistributionService(publisher, cfg.Distribution.Channel, logr)
	queue := jobs.NewQueue("distribution", distributionSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Distribution.Workers,
		MaxRetries: cfg.Distribution.Retries,
		RetryDelay: cfg.Distribution.RetryDelay,
		Logger:     logr,
		Observer: func(_ jobs.Job, result jobs.Result) {
			metricsSvc.RecordDistributionJob(string(result))
		},
	})
	queue.Start(ctx)
	defer queue.Stop()
	distributionSvc.UseQueue(queue)

	contextSvc := service.NewContextService(service.ContextServiceParams{
		Statuses:      statusRepo,
		Relationships: relationshipRepo,
		Cache:         cacheSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		CacheTTL:      cfg.Context.CacheTTL,
		Limits: service.ContextLimits{
			Ancestors:        cfg.Context.AncestorsLimit,
			Descendants:      cfg.Context.DescendantsLimit,
			DescendantsDepth: cfg.Context.DescendantsDepthLimit,
		},
	})
	replyTreeSvc := service.NewReplyTreeService(statusRepo, cfg.ReplyTree.MaxLevel, cfg.ReplyTree.FetchLimit, logr)
	quoteSvc := service.NewQuoteService(service.QuoteServiceParams{
		Quotes:        quoteRepo,
		Statuses:      statusRepo,
		Relationships: relationshipRepo,
		Notifier:      distributionSvc,
		Metrics:       metricsSvc,
		Logger:        logr,
		ListLimit:     cfg.Quotes.ListLimit,
	})
	policySvc := service.NewStatusPolicyService(statusRepo, relationshipRepo, distributionSvc, metricsSvc, logr)

	invalidator := service.NewThreadInvalidator(pubsub.NewRedisSubscriber(rdb, logr), contextSvc, cfg.Events.StatusChannel, logr)
	if err := invalidator.Start(ctx); err != nil {
		logr.Warn("thread invalidator disabled", zap.Error(err))
	}

	h := handlers{
		context: handler.NewContextHandler(contextSvc, replyTreeSvc),
		quotes:  handler.NewQuoteHandler(quoteSvc),
		policy:  handler.NewPolicyHandler(policySvc),
		ops:     handler.NewMetricsHandler(metricsSvc, readinessChecks(db, cacheRepo)),
	}
	router := newRouter(cfg, logr, metricsSvc, authSvc, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config, rdb *redis.Client, logr *zap.Logger) (pubsub.Publisher, error) {
	switch cfg.Distribution.Backend {
	case config.DistributionNATS:
		return pubsub.ConnectNATS(cfg.Distribution.NATSURL, "statusgraph-distribution", logr)
	case config.DistributionLog:
		return pubsub.NewLogPublisher(logr), nil
	default:
		return pubsub.NewRedisPublisher(rdb), nil
	}
}

func readinessChecks(db *sqlx.DB, cacheRepo *repository.CacheRepository) map[string]handler.ReadinessCheck {
	return map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis":    cacheRepo.Ping,
	}
}

func newRouter(cfg *config.Config, logr *zap.Logger, metricsSvc *service.MetricsService, auth middleware.TokenVerifier, h handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	statuses := api.Group("/statuses/:id")
	public := statuses.Group("", middleware.OptionalJWT(auth))
	public.GET("/context", h.context.Context)
	public.GET("/replies/tree", h.context.ReplyTree)

	quotesGate := middleware.FeatureGate("quotes", cfg.Quotes.Enabled)
	readQuotes := public.Group("", quotesGate)
	readQuotes.GET("/quotes", h.quotes.List)
	readQuotes.GET("/quote", h.quotes.Get)
	readQuotes.GET("/quote_approval", h.policy.Get)

	writeQuotes := statuses.Group("", quotesGate, middleware.JWT(auth))
	writeQuotes.POST("/quote", h.quotes.Request)
	writeQuotes.POST("/quote/approve", h.quotes.Approve)
	writeQuotes.POST("/quote/reject", h.quotes.Reject)
	writeQuotes.POST("/quote/revoke", h.quotes.Revoke)
	writeQuotes.PUT("/quote_approval", h.policy.Update)

	return r
}
