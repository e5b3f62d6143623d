package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"gyanburu-backend/internal/config"
	"gyanburu-backend/internal/events"
	"gyanburu-backend/internal/handlers"
	"gyanburu-backend/internal/logger"
	"gyanburu-backend/internal/metrics"
	"gyanburu-backend/internal/middleware"
	"gyanburu-backend/internal/models"
	"gyanburu-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		zl.Fatal("redis", zap.Error(err))
	}
	defer redisService.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	healthChecks := []metrics.HealthFunc{redisService.Ping}

	var scoreStore services.ScoreStore = services.NewRedisScoreStore(redisService)
	if cfg.ScoreStore == "postgres" {
		db, err := services.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			zl.Fatal("postgres", zap.Error(err))
		}
		defer db.Close()

		pg := services.NewPostgresScoreStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			zl.Fatal("postgres schema", zap.Error(err))
		}
		scoreStore = pg
		healthChecks = append(healthChecks, pg.Ping)
	}

	var engine *services.GameEngine
	feed := handlers.NewWalletFeed(handlers.BalanceReaderFunc(
		func(ctx context.Context, identity string) (*models.BalanceResponse, error) {
			return engine.Balance(ctx, identity)
		}), cfg.AllowedOrigins, zl)

	engineOpts := []services.EngineOption{
		services.WithBroadcaster(feed),
		services.WithMetrics(m),
		services.WithLogger(zl),
	}
	paymentOpts := []services.PaymentOption{
		services.PaymentBroadcaster(feed),
		services.PaymentMetrics(m),
		services.PaymentLogger(zl),
	}
	if cfg.KafkaBrokers != "" {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicRounds, cfg.KafkaTopicPay, zl.Named("events"))
		defer publisher.Close()
		engineOpts = append(engineOpts, services.WithPublisher(publisher))
		paymentOpts = append(paymentOpts, services.PaymentPublisher(publisher))
		zl.Info("publishing wallet events", zap.String("brokers", cfg.KafkaBrokers))
	}

	outcomes := services.NewOutcomeGenerator(services.CryptoSource{}, cfg.JackpotMultiplier, cfg.PairMultiplier)
	engine = services.NewGameEngine(redisService, outcomes, services.GameConfigFrom(cfg), engineOpts...)

	paymentService := services.NewPaymentService(redisService, services.PaymentConfig{
		WebhookSecret: cfg.StripeWebhookSecret,
		CreditAmount:  cfg.StripeCreditAmount,
	}, paymentOpts...)
	if cfg.StripeWebhookSecret == "" {
		zl.Warn("STRIPE_WEBHOOK_SECRET is not set; payment webhooks will be rejected")
	}

	var checkout handlers.CheckoutCreator
	if cs, err := services.NewCheckoutService(cfg); err == nil {
		checkout = cs
	} else {
		zl.Warn("checkout disabled", zap.Error(err))
	}

	jwtService := services.NewJWTService(cfg)
	scoreService := services.NewScoreService(scoreStore, cfg.RequireScoreIdentity, m, zl)
	scoreLimiter := services.NewFixedWindowLimiter(redisService, cfg.ScoreWindow, cfg.ScoreWindowLimit)

	authHandler := handlers.NewAuthHandler(jwtService, cfg.JWTTTL, zl)
	gameHandler := handlers.NewGameHandler(engine, zl)
	walletHandler := handlers.NewWalletHandler(engine, zl)
	scoreHandler := handlers.NewScoreHandler(scoreService, zl)
	paymentHandler := handlers.NewPaymentHandler(paymentService, checkout, zl)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zl), m.Middleware())

	publicCORS := middleware.CORS(cfg.AllowedOrigins)
	authCORS := middleware.CORS(cfg.AllowedOrigins, "Content-Type", "Authorization")
	optionalAuth := middleware.OptionalAuth(jwtService)

	router.Any("/score",
		publicCORS,
		optionalAuth,
		middleware.RateLimitMiddleware(scoreLimiter, "score", m, zl),
		scoreHandler.SubmitAnonymous)

	router.POST("/auth/guest", authCORS, optionalAuth, authHandler.Guest)
	router.OPTIONS("/auth/guest", authCORS)

	router.GET("/leaderboard/:collection", publicCORS, scoreHandler.Leaderboard)

	rpc := router.Group("/rpc", authCORS, optionalAuth)
	{
		callable(rpc, "/placeBetAndSpin", gameHandler.PlaceBetAndSpin)
		callable(rpc, "/saveScore", scoreHandler.SaveScore)
	}

	router.POST("/webhooks/stripe", paymentHandler.Webhook)
	router.GET("/checkout", authCORS, optionalAuth, paymentHandler.Checkout)
	router.POST("/checkout", authCORS, optionalAuth, paymentHandler.Checkout)
	router.OPTIONS("/checkout", authCORS)

	protected := router.Group("/api", authCORS, middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/wallet", walletHandler.GetBalance)
		protected.GET("/wallet/rounds", walletHandler.GetRounds)
		protected.GET("/ws", feed.HandleWebSocket)
	}

	apiSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.NewServer(cfg.MetricsPort, reg, func(ctx context.Context) error {
		for _, check := range healthChecks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	go serve(zl, "metrics", metricsSrv)
	go serve(zl, "api", apiSrv)

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		zl.Error("api shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zl.Error("metrics shutdown", zap.Error(err))
	}
}

// callable registers an RPC route and its preflight; the CORS middleware on
// the group answers OPTIONS before the handler runs.
func callable(g *gin.RouterGroup, path string, h gin.HandlerFunc) {
	g.POST(path, h)
	g.OPTIONS(path, h)
}

func serve(zl *zap.Logger, name string, srv *http.Server) {
	zl.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server failed", zap.String("server", name), zap.Error(err))
	}
}
