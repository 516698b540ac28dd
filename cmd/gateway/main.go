// Package main User Lifecycle Gateway API
//
// REST front door for the user and notification services. Requests are
// proxied over gRPC behind per-upstream circuit breakers.
//
//	@title			User Lifecycle Gateway API
//	@version		1.0
//	@description	API Gateway for the user and notification services
//
//	@contact.name	API Support
//	@contact.email	support@example.com
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http https
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "user-lifecycle/docs/swagger"
	"user-lifecycle/internal/gateway/clients"
	"user-lifecycle/internal/gateway/handlers"
	"user-lifecycle/pkg/breaker"
	"user-lifecycle/pkg/config"
	"user-lifecycle/pkg/logger"
	"user-lifecycle/pkg/middleware"
	pkgtls "user-lifecycle/pkg/tls"
)

func main() {
	// Load configuration
	cfg := config.Load()
	cfg.ServiceName = "gateway"

	// Initialize logger
	log := logger.New("gateway", cfg.LogLevel)
	defer log.Sync()

	log.Info("starting gateway service")

	defaults, opts, err := cfg.Breakers()
	if err != nil {
		log.Fatal("failed to load breaker configuration: " + err.Error())
	}
	breakers := breaker.NewRegistry(defaults, log, opts...)

	// Create gRPC clients; connections are lazy so a missing upstream only
	// trips its breaker
	grpcClients, err := clients.NewClients(cfg)
	if err != nil {
		log.Fatal("failed to create gRPC clients: " + err.Error())
	}
	defer grpcClients.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	// Register API routes
	handler := handlers.NewHandler(grpcClients.Users, grpcClients.Notifications, breakers, log)
	handler.RegisterRoutes(router.Group("/api/v1"))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handler.Health)

	// Root redirect to Swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/swagger/index.html")
	})

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	if cfg.TLSEnabled {
		tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, "", false)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		server.Addr = ":" + cfg.HTTPSPort
		server.TLSConfig = tlsConfig

		go func() {
			log.Info("HTTPS server listening on :" + cfg.HTTPSPort)
			if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTPS server error: " + err.Error())
			}
		}()
	} else {
		server.Addr = ":" + cfg.HTTPPort

		go func() {
			log.Info("HTTP server listening on :" + cfg.HTTPPort)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTP server error: " + err.Error())
			}
		}()
	}

	waitForShutdown(ctx, server, log)
}

func waitForShutdown(ctx context.Context, server *http.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error: " + err.Error())
	}

	log.Info("server stopped")
}
