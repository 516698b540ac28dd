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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	notificationsv1 "user-lifecycle/api/notifications/v1"
	"user-lifecycle/internal/notifications/adapters"
	"user-lifecycle/internal/notifications/application"
	"user-lifecycle/internal/notifications/infrastructure"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/config"
	grpcpkg "user-lifecycle/pkg/grpc"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/middleware"
	"user-lifecycle/pkg/nsq"
	"user-lifecycle/pkg/rabbitmq"
	"user-lifecycle/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.LoadForService("NOTIFICATIONS")
	cfg.HTTPPort = getEnvOrDefault("NOTIFICATIONS_HTTP_PORT", "8082")
	cfg.GRPCPort = getEnvOrDefault("NOTIFICATIONS_GRPC_PORT", "50052")

	// Initialize logger
	log := logger.New("notification-service", cfg.LogLevel)
	defer log.Sync()

	log.Info("starting notification service", zap.String("event_broker", cfg.EventBroker))

	// Circuit breakers
	defaults, opts, err := cfg.Breakers()
	if err != nil {
		log.Fatal("failed to load breaker configuration: " + err.Error())
	}
	breakers := breaker.NewRegistry(defaults, log, opts...)

	// Delivery counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("failed to reach Redis, delivery counters will be missing: " + err.Error())
	}
	pingCancel()
	recorder := adapters.NewRedisRecorder(redisClient, "")

	// Mail transport
	mailer, err := adapters.NewSMTPMailer(adapters.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		UseSSL:   cfg.SMTPUseSSL,
		UseTLS:   cfg.SMTPUseTLS,
		CAFile:   cfg.SMTPCAFile,
		Timeout:  cfg.SMTPTimeout,
	})
	if err != nil {
		log.Fatal("failed to configure SMTP: " + err.Error())
	}

	gateway := application.NewMailGateway(mailer, recorder, breakers, log)
	dispatcher := application.NewNotificationDispatcher(gateway, recorder, breakers, log)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume user events; the HTTP and gRPC surfaces still work without a broker
	closeBroker := startConsumer(ctx, cfg, dispatcher, log)
	defer closeBroker()

	// Start HTTP server
	httpHandler := infrastructure.NewHTTPHandler(gateway, breakers)
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
	grpcServer := setupGRPCServer(cfg, log, gateway)

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
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("servers stopped")
}

func startConsumer(ctx context.Context, cfg *config.Config, dispatcher *application.NotificationDispatcher, log *logger.Logger) func() {
	noop := func() {}

	switch cfg.EventBroker {
	case config.BrokerNSQ:
		// Producer only republishes malformed messages to the dead-letter topic
		dlq, err := nsq.NewProducer(cfg.NSQDAddr, log)
		if err != nil {
			log.Warn("failed to connect to nsqd, events will not be consumed: " + err.Error())
			return noop
		}

		nsqCfg := nsq.ConsumerConfig{
			Channel:       cfg.EventsChannel,
			MaxInFlight:   1,
			LookupdAddrs:  cfg.NSQLookupd,
			HandleTimeout: cfg.SMTPTimeout * 2,
		}
		if len(cfg.NSQLookupd) == 0 {
			nsqCfg.NsqdAddrs = []string{cfg.NSQDAddr}
		}

		consumer, err := adapters.NewNSQEventConsumer(nsqCfg, dlq, dispatcher, log)
		if err != nil {
			log.Warn("failed to create NSQ consumer: " + err.Error())
			return dlq.Stop
		}
		if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start consumer: " + err.Error())
		}
		return dlq.Stop

	default:
		conn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("failed to connect to RabbitMQ, events will not be consumed: " + err.Error())
			return noop
		}
		closeConn := func() { conn.Close() }

		consumer, err := adapters.NewRabbitMQEventConsumer(conn, cfg.EventsQueue, dispatcher, log)
		if err != nil {
			log.Warn("failed to create RabbitMQ consumer: " + err.Error())
			return closeConn
		}
		if err := consumer.Start(ctx); err != nil {
			log.Warn("failed to start consumer: " + err.Error())
		}
		return closeConn
	}
}

func setupGRPCServer(cfg *config.Config, log *logger.Logger, gateway *application.MailGateway) *grpc.Server {
	var opts []grpc.ServerOption

	opts = append(opts, grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.GRPCTimeout)))

	// Configure mTLS if enabled
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := tls.ServerConfig(
			"certs/notifications.crt",
			"certs/notifications.key",
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
	notificationsv1.RegisterNotificationServiceServer(server, infrastructure.NewGRPCServer(gateway))

	return server
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
