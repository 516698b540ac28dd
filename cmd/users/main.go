package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	usersv1 "user-lifecycle/api/users/v1"
	"user-lifecycle/internal/users/adapters"
	"user-lifecycle/internal/users/application"
	"user-lifecycle/internal/users/infrastructure"
	"user-lifecycle/internal/users/ports"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/config"
	"user-lifecycle/pkg/db"
	"user-lifecycle/pkg/events"
	grpcpkg "user-lifecycle/pkg/grpc"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/middleware"
	"user-lifecycle/pkg/nsq"
	"user-lifecycle/pkg/rabbitmq"
	"user-lifecycle/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.LoadForService("USERS")
	cfg.DBName = getEnvOrDefault("USERS_DB_NAME", "users_db")
	cfg.HTTPPort = getEnvOrDefault("USERS_HTTP_PORT", "8081")
	cfg.GRPCPort = getEnvOrDefault("USERS_GRPC_PORT", "50051")

	// Initialize logger
	log := logger.New("user-service", cfg.LogLevel)
	defer log.Sync()

	log.Info("starting user service", zap.String("event_broker", cfg.EventBroker))

	// Circuit breakers
	defaults, opts, err := cfg.Breakers()
	if err != nil {
		log.Fatal("failed to load breaker configuration: " + err.Error())
	}
	breakers := breaker.NewRegistry(defaults, log, opts...)

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		DSN:     cfg.DSN(),
		Timeout: cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	// Initialize repository and run migrations
	repo := adapters.NewPostgresUserRepository(dbConn)
	if err := repo.Migrate(); err != nil {
		log.Fatal("failed to migrate database: " + err.Error())
	}

	// Connect to the event broker; events are disabled when it is unreachable
	publisher, closeBroker := connectPublisher(cfg, log)
	defer closeBroker()

	// Initialize use case
	useCase := application.NewUserUseCase(repo, publisher, breakers, log)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	httpHandler := infrastructure.NewHTTPHandler(useCase, breakers)
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	httpHandler.RegisterRoutes(router.Group("/api"))
	router.GET("/health", httpHandler.Health)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	go func() {
		log.Info("HTTP server listening on :" + cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error: " + err.Error())
		}
	}()

	// Start gRPC server
	grpcServer := setupGRPCServer(cfg, log, useCase)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC: " + err.Error())
	}

	go func() {
		log.Info("gRPC server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("servers stopped")
}

// connectPublisher returns a nil publisher when the broker cannot be reached.
func connectPublisher(cfg *config.Config, log *logger.Logger) (ports.EventPublisher, func()) {
	noop := func() {}

	switch cfg.EventBroker {
	case config.BrokerNSQ:
		producer, err := nsq.NewProducer(cfg.NSQDAddr, log)
		if err != nil {
			log.Warn("failed to connect to nsqd, events will be disabled: " + err.Error())
			return nil, noop
		}
		return adapters.NewNSQPublisher(producer), producer.Stop

	default:
		conn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("failed to connect to RabbitMQ, events will be disabled: " + err.Error())
			return nil, noop
		}
		pub, err := rabbitmq.NewPublisher(conn, events.Topic, log)
		if err != nil {
			log.Warn("failed to create publisher, events will be disabled: " + err.Error())
			conn.Close()
			return nil, noop
		}
		return adapters.NewRabbitMQPublisher(pub), func() { conn.Close() }
	}
}

func setupGRPCServer(cfg *config.Config, log *logger.Logger, useCase *application.UserUseCase) *grpc.Server {
	var opts []grpc.ServerOption

	opts = append(opts, grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.GRPCTimeout)))

	// Configure mTLS if enabled
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := tls.ServerConfig(
			"certs/users.crt",
			"certs/users.key",
			cfg.TLSCAFile,
			true, // require client cert
		)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		log.Info("gRPC mTLS enabled")
	}

	server := grpc.NewServer(opts...)
	usersv1.RegisterUserServiceServer(server, infrastructure.NewGRPCServer(useCase))

	return server
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
