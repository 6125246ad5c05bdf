package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carepulse/platform/pkg/common/config"
	"github.com/carepulse/platform/pkg/common/database"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/gateway/auth"
	"github.com/carepulse/platform/pkg/gateway/middleware"
	"github.com/carepulse/platform/pkg/gateway/routes"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	tokenSigner, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid jwt configuration")
	}

	oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret)
	if err != nil {
		logger.Log.WithError(err).Warn("SSO not configured, password-less login only")
	}

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.GatewayRateLimitRPS, cfg.GatewayRateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	routes.NewAuthHandler(db, tokenSigner, oidcAuth).Register(api)

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(tokenSigner))
	routes.NewAlertsHandler(db).Register(protected)
	routes.NewProxyHandler(
		cfg.GatewayRequestTimeout,
		cfg.AdherenceBaseURL,
		cfg.ContactBaseURL,
		cfg.AlertBaseURL,
		cfg.NotificationBaseURL,
	).Register(protected)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.GatewayPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.GatewayPort,
		}).Info("API Gateway started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down API Gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("API Gateway stopped")
}
