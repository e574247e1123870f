// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"obcampaign-service/internal/config"
	"obcampaign-service/internal/db"
	campaignHandler "obcampaign-service/internal/handlers/campaign"
	sessionHandler "obcampaign-service/internal/handlers/session"
	wsHandler "obcampaign-service/internal/handlers/websocket"
	"obcampaign-service/internal/middleware"
	"obcampaign-service/internal/pkg/clock"
	"obcampaign-service/internal/pkg/ids"
	"obcampaign-service/internal/pkg/jwt"
	"obcampaign-service/internal/pkg/session"
	"obcampaign-service/internal/queue"
	"obcampaign-service/internal/repository/postgres"
	"obcampaign-service/internal/scheduler"
	campaignUsecase "obcampaign-service/internal/service/campaign"
	"obcampaign-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	// http, ctx and cancel are fixed at construction.
	http   *http.Server
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the resources Start opens and the stopped flag.
	mu        sync.Mutex
	stopped   bool
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher *queue.Publisher
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start wires every component and serves HTTP until Shutdown is called. It
// returns nil without serving when Shutdown came first.
func (s *Server) Start() error {
	ctx := s.ctx
	if s.isStopped() {
		return nil
	}

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(db.PostgresConfig{URL: s.cfg.DatabaseURL, MaxConns: s.cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if !s.keep(func() { s.pool = pool }) {
		pool.Close()
		return nil
	}
	s.logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Address:  s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if !s.keep(func() { s.redis = redisClient }) {
		redisClient.Close()
		return nil
	}
	s.logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT -----
	verifier, err := jwt.Load(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}
	var tokenVerifier middleware.TokenVerifier
	var hubVerifier websocket.TokenVerifier
	if verifier != nil {
		tokenVerifier, hubVerifier = verifier, verifier
	} else {
		s.logger.Warn("JWT_PUBLIC_KEY_PATH not set, authentication disabled")
	}

	// ----- Transition publisher -----
	var publisher campaignUsecase.TransitionPublisher
	if s.cfg.AMQPURL != "" {
		amqpPublisher := queue.NewPublisher(s.cfg.AMQPURL, s.cfg.AMQPQueue, s.logger)
		if !s.keep(func() { s.publisher = amqpPublisher }) {
			return nil
		}
		if err := amqpPublisher.Connect(); err != nil {
			return err
		}
		publisher = amqpPublisher
	} else {
		s.logger.Warn("AMQP_URL not set, transition requests are only logged")
		publisher = queue.NewLogPublisher(s.logger)
	}

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(hubVerifier, s.logger)
	go hub.Run(ctx)

	// ----- Repositories & Services -----
	store := postgres.NewDB(pool)
	campaignService := campaignUsecase.NewCampaignService(campaignUsecase.Deps{
		Store:     store.Campaigns,
		Plans:     store.Dialing,
		Dlmas:     store.Dialing,
		DialList:  store.Dialing,
		Dialing:   store.Dialing,
		Publisher: publisher,
		Notifier:  hub,
		Clock:     clock.System{},
		IDs:       ids.UUID{},
	}, s.logger)

	// ----- Scheduler -----
	if s.cfg.SchedulerEnabled {
		sched := scheduler.New(campaignService, scheduler.NewRedisLocker(redisClient), scheduler.Config{
			Interval: s.cfg.SchedulerInterval,
			LockTTL:  s.cfg.SchedulerLockTTL,
		}, s.logger.Named("scheduler"))
		go sched.Run(ctx)
	}

	// ----- Middlewares & Router -----
	s.engine.Use(
		middleware.RecoveryMiddleware(s.logger),
		middleware.LoggingMiddleware(s.logger),
		middleware.MetricsMiddleware(),
		middleware.CORSMiddleware(),
	)

	auth := middleware.NewAuthMiddleware(tokenVerifier)
	handlers := &Handlers{
		CampaignHandler: campaignHandler.NewCampaignHandler(campaignService, s.logger),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, s.logger),
		AuthMiddleware:  auth,
		Health:          store,
	}
	if auth.Enabled() {
		revocations := session.NewRevocations(redisClient)
		auth.WithRevocations(revocations)
		handlers.SessionHandler = sessionHandler.NewSessionHandler(revocations, s.logger)
	}
	SetupRouter(s.engine, handlers)

	// ----- Start HTTP -----
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops HTTP, the scheduler and the hub, then closes connections.
// It is safe to call while Start is still wiring components.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	pool, redisClient, publisher := s.pool, s.redis, s.publisher
	s.mu.Unlock()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	s.cancel()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp close: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if pool != nil {
		pool.Close()
	}
	return errors.Join(errs...)
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// keep runs set under the lock unless Shutdown has begun.
func (s *Server) keep(set func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	set()
	return true
}
