package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shabbeerali786/Online-Medical-Consultation/internal/api/router"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/app/bootstrap"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/appointments"
	appconfig "github.com/shabbeerali786/Online-Medical-Consultation/internal/config"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/doctors"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/messaging"
	"github.com/shabbeerali786/Online-Medical-Consultation/internal/observability/metrics"
	"github.com/shabbeerali786/Online-Medical-Consultation/pkg/logging"
)

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telemedicine scheduling API",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		// The sweeper and API retry against a recovering database; the
		// process still starts.
		logger.Warn("database not reachable at startup", "error", err)
	}

	schedulingMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	doctorStore := doctors.NewStore(pool)
	messageStore := messaging.NewStore(pool)
	appointmentStore := appointments.NewStore(pool)

	appointmentService := appointments.NewService(
		appointmentStore, doctorStore, logger, schedulingMetrics, cfg.DefaultDurationMinutes)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	sweeper := appointments.NewSweeper(appointments.SweeperConfig{
		Store:              appointmentStore,
		Notifier:           messageStore,
		Doctors:            doctorStore,
		Logger:             logger,
		Metrics:            schedulingMetrics,
		Redis:              redisClient,
		Interval:           cfg.SweepInterval,
		ConfirmationWindow: cfg.ConfirmationWindow,
		CheckinGrace:       cfg.CheckinGrace,
	})
	go sweeper.Start(ctx)

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(appointmentService, logger),
		DoctorsHandler:      doctors.NewHandler(doctorStore, logger),
		MessagingHandler:    messaging.NewHandler(messageStore, logger),
		MetricsHandler:      promhttp.Handler(),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		BookingRateLimit:    5,
		BookingBurst:        10,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
