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
	"github.com/carepulse/platform/pkg/common/kafka"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/notifications"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	redisClient := database.GetRedis()

	repo := notifications.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate notification tables")
	}

	svc := notifications.NewService(repo, redisClient, cfg.BadgeCacheTTL)
	handler := notifications.NewHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Alert cycles fired by the alert service invalidate badge counts here.
	consumer := kafka.NewConsumer(cfg.AlertEventTopic, "notification-service")
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, svc.HandleAlertEvent); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("alert event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.NotificationServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.NotificationServicePort,
		}).Info("Notification Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Notification Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Notification Service stopped")
}
