package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carepulse/platform/pkg/adherence"
	"github.com/carepulse/platform/pkg/alerting"
	"github.com/carepulse/platform/pkg/common/config"
	"github.com/carepulse/platform/pkg/common/database"
	"github.com/carepulse/platform/pkg/common/kafka"
	"github.com/carepulse/platform/pkg/common/logger"
	"github.com/carepulse/platform/pkg/contacts"
	"github.com/carepulse/platform/pkg/notifications"
	"github.com/carepulse/platform/pkg/notify"
	"github.com/carepulse/platform/pkg/observability/metrics"
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

	auditRepo := alerting.NewAuditRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate alert log tables")
	}

	adherenceRepo := adherence.NewRepository(db)
	contactRepo := contacts.NewRepository(db)
	feedRepo := notifications.NewRepository(db)

	templates, err := notify.LoadTemplates(cfg.AlertTemplatesPath)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to load alert templates, using defaults")
		templates = notify.DefaultTemplates()
	}

	gateway := notify.NewAuditingGateway(notify.New(cfg), auditRepo)

	producer := kafka.NewProducer(cfg.AlertEventTopic)
	defer producer.Close()

	detector := alerting.NewDetector(
		adherenceRepo,
		contactRepo,
		contactRepo,
		feedRepo,
		gateway,
		producer,
		templates,
		cfg.MissedDoseThreshold,
	)

	auditSvc := alerting.NewAuditService(auditRepo)
	handler := alerting.NewHandler(detector, auditSvc)

	scheduler := alerting.NewScheduler(detector, alerting.NewRedisLocker(redisClient), cfg.ScanInterval)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AlertServicePort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.RunAll(ctx, adherenceRepo)

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.AlertServicePort,
		}).Info("Alert Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Alert Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	// Let in-flight SMS dispatches finish logging before exit.
	detector.Wait()

	logger.Log.Info("Alert Service stopped")
}
