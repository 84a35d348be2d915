package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrimarket/marketplace-api/internal/cache"
	"github.com/agrimarket/marketplace-api/internal/clients"
	"github.com/agrimarket/marketplace-api/internal/config"
	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/handlers"
	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/internal/outbox"
	"github.com/agrimarket/marketplace-api/internal/repository"
	"github.com/agrimarket/marketplace-api/internal/service"
	"github.com/agrimarket/marketplace-api/pkg/kafka"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
	"github.com/agrimarket/marketplace-api/pkg/ratelimit"
	"github.com/agrimarket/marketplace-api/pkg/retry"
)

// Server wires the HTTP layer to the domain services and background processors
type Server struct {
	config     *config.Config
	logger     logger.Logger
	router     *mux.Router
	httpServer *http.Server
	db         *database.Database

	orderService   *service.OrderService
	walletService  *service.WalletService
	payoutService  *service.PayoutService
	reviewService  *service.ReviewService
	productService *service.ProductService

	dlqRepo             *repository.DeadLetterRepository
	outboxProcessor     *outbox.Processor
	deadLetterProcessor *outbox.DeadLetterProcessor
	kafkaProducer       *kafka.Producer
	kafkaConsumer       *kafka.Consumer
	mailer              *clients.MailerClient
	checkoutLimiter     *ratelimit.IPLimiter
}

// NewServer builds the full service: database, repositories, cache, services,
// outbox processors, and Kafka plumbing.
func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	db, err := database.New(cfg, log)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Repositories
	productRepo := repository.NewProductRepository(db, log)
	outboxRepo := repository.NewOutboxRepository(db, log)
	dlqRepo := repository.NewDeadLetterRepository(db, log)
	orderRepo := repository.NewOrderRepository(db, outboxRepo, log)
	walletRepo := repository.NewWalletRepository(db, log)
	payoutRepo := repository.NewPayoutRepository(db, walletRepo, outboxRepo, log)
	reviewRepo := repository.NewReviewRepository(db, log)

	// Product cache
	productCache := cache.NewProductCache(cache.New(cfg.Redis.Addr), log)

	// Services
	orderService := service.NewOrderService(orderRepo, productRepo, productCache, log)
	walletService := service.NewWalletService(walletRepo, cfg.Platform.WalletCurrency, log)
	payoutService := service.NewPayoutService(payoutRepo, walletRepo, cfg.Platform, log)
	reviewService := service.NewReviewService(reviewRepo, productRepo, productCache, log)
	productService := service.NewProductService(productRepo, productCache, log)

	// Kafka producer; without a broker the outbox falls back to logging events
	var (
		kafkaProducer *kafka.Producer
		orderEvents   outbox.MessageHandler
		payoutEvents  outbox.MessageHandler
	)

	kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, log)

	if err != nil {
		log.Warn("Kafka producer unavailable, events will only be logged", "error", err)
		kafkaProducer = nil
		loggingHandler := outbox.NewLoggingHandler(log)
		orderEvents = loggingHandler
		payoutEvents = loggingHandler
	} else {
		orderEvents = outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.OrdersTopic, log)
		payoutEvents = outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.PayoutsTopic, log)
	}

	// Outbox processor
	outboxProcessor := outbox.NewProcessor(outboxRepo, dlqRepo, &outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		BackoffStrategy: retry.NewDefaultExponentialBackoff(),
		UseDLQ:          true,
	}, log)

	// Dead letter processor runs less often and with more headroom
	deadLetterProcessor := outbox.NewDeadLetterProcessor(dlqRepo, &outbox.DeadLetterConfig{
		PollingInterval: 30 * time.Second,
		BatchSize:       5,
		MaxRetries:      5,
	}, log)

	orderEventTypes := []string{
		models.EventOrderCreated,
		models.EventOrderStatusChanged,
		models.EventOrderCancelled,
	}

	payoutEventTypes := []string{
		models.EventPayoutRequested,
		models.EventPayoutApproved,
		models.EventPayoutRejected,
		models.EventPayoutProcessed,
	}

	for _, eventType := range orderEventTypes {
		outboxProcessor.RegisterHandler(eventType, orderEvents)
		deadLetterProcessor.RegisterHandler(eventType, orderEvents)
	}

	for _, eventType := range payoutEventTypes {
		outboxProcessor.RegisterHandler(eventType, payoutEvents)
		deadLetterProcessor.RegisterHandler(eventType, payoutEvents)
	}

	// Mail gateway client and the notification consumer that feeds it
	var (
		mailer        *clients.MailerClient
		kafkaConsumer *kafka.Consumer
	)

	if cfg.Mailer.Enabled {
		mailer = clients.NewMailerClient(cfg.Mailer.BaseURL, log)
	}

	if mailer != nil && kafkaProducer != nil {
		kafkaConsumer, err = kafka.NewConsumer(&kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        []string{cfg.Kafka.OrdersTopic, cfg.Kafka.PayoutsTopic},
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, log)

		if err != nil {
			log.Warn("Kafka consumer unavailable, notifications disabled", "error", err)
			kafkaConsumer = nil
		} else {
			notificationHandler := handlers.NewNotificationHandler(mailer, log)
			kafkaConsumer.RegisterHandler(cfg.Kafka.OrdersTopic, notificationHandler)
			kafkaConsumer.RegisterHandler(cfg.Kafka.PayoutsTopic, notificationHandler)
		}
	}

	r := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: log,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:                  db,
		orderService:        orderService,
		walletService:       walletService,
		payoutService:       payoutService,
		reviewService:       reviewService,
		productService:      productService,
		dlqRepo:             dlqRepo,
		outboxProcessor:     outboxProcessor,
		deadLetterProcessor: deadLetterProcessor,
		kafkaProducer:       kafkaProducer,
		kafkaConsumer:       kafkaConsumer,
		mailer:              mailer,
		// 5 checkout requests burst per IP, refilled at 1/s, idle entries dropped
		checkoutLimiter: ratelimit.NewIPLimiter(5, 1, 5*time.Minute),
	}

	server.setupRoutes()

	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(); err != nil {
			log.Error("Failed to start Kafka consumer", "error", err)
			// Non-fatal; the API works without notifications
		}
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.deadLetterProcessor.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Metrics)
	s.router.Use(s.loggingMiddleware)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public catalog endpoints
	api.HandleFunc("/products", s.getProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.getProductByIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/reviews", s.getProductReviewsHandler).Methods(http.MethodGet)

	// Everything below requires a verified token
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Auth(s.config.Auth.JWTSecret))

	// Orders; checkout is rate limited per client IP
	checkout := middleware.RateLimit(s.checkoutLimiter, s.logger)(
		s.withRoles(s.createOrderHandler, middleware.RoleCustomer, middleware.RoleAdmin))
	authed.Handle("/orders", checkout).Methods(http.MethodPost)
	authed.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)
	authed.HandleFunc("/customers/{id}/orders", s.getCustomerOrdersHandler).Methods(http.MethodGet)
	authed.Handle("/orders/{id}/status",
		s.withRoles(s.updateOrderStatusHandler, middleware.RoleAdmin)).Methods(http.MethodPatch)
	authed.HandleFunc("/orders/{id}/cancel", s.cancelOrderHandler).Methods(http.MethodPost)

	// Wallet
	authed.HandleFunc("/wallet", s.getWalletHandler).Methods(http.MethodGet)
	authed.HandleFunc("/wallet/transactions", s.getWalletTransactionsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/wallet/transfer", s.transferHandler).Methods(http.MethodPost)
	authed.Handle("/wallet/credit",
		s.withRoles(s.creditWalletHandler, middleware.RoleAdmin)).Methods(http.MethodPost)
	authed.Handle("/wallet/debit",
		s.withRoles(s.debitWalletHandler, middleware.RoleAdmin)).Methods(http.MethodPost)

	// Payouts
	authed.Handle("/payouts",
		s.withRoles(s.requestPayoutHandler, middleware.RoleFarmer)).Methods(http.MethodPost)
	authed.Handle("/payouts",
		s.withRoles(s.getPayoutsHandler, middleware.RoleFarmer, middleware.RoleAdmin)).Methods(http.MethodGet)
	authed.HandleFunc("/payouts/{id}", s.getPayoutByIDHandler).Methods(http.MethodGet)
	authed.Handle("/payouts/{id}/approve",
		s.withRoles(s.approvePayoutHandler, middleware.RoleAdmin)).Methods(http.MethodPost)
	authed.Handle("/payouts/{id}/reject",
		s.withRoles(s.rejectPayoutHandler, middleware.RoleAdmin)).Methods(http.MethodPost)
	authed.Handle("/payouts/{id}/process",
		s.withRoles(s.processPayoutHandler, middleware.RoleAdmin)).Methods(http.MethodPost)

	// Products and reviews
	authed.Handle("/products",
		s.withRoles(s.createProductHandler, middleware.RoleFarmer, middleware.RoleAdmin)).Methods(http.MethodPost)
	authed.Handle("/products/{id}",
		s.withRoles(s.updateProductHandler, middleware.RoleFarmer, middleware.RoleAdmin)).Methods(http.MethodPut)
	authed.Handle("/products/{id}/reviews",
		s.withRoles(s.createReviewHandler, middleware.RoleCustomer)).Methods(http.MethodPost)
	authed.HandleFunc("/reviews/{id}", s.updateReviewHandler).Methods(http.MethodPut)
	authed.HandleFunc("/reviews/{id}", s.deleteReviewHandler).Methods(http.MethodDelete)

	// Admin API for monitoring and management
	admin := s.router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(middleware.Auth(s.config.Auth.JWTSecret))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	admin.HandleFunc("/dead-letters", s.getDeadLettersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.retryDeadLetterHandler).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.discardDeadLetterHandler).Methods(http.MethodPost)
}

// withRoles wraps a handler with a role check
func (s *Server) withRoles(h http.HandlerFunc, roles ...string) http.Handler {
	return middleware.RequireRole(roles...)(h)
}

// loggingMiddleware logs each processed request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
