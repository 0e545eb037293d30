package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/connectsphere/booking-core/internal/config"
	"github.com/connectsphere/booking-core/internal/database"
	"github.com/connectsphere/booking-core/internal/handler"
	"github.com/connectsphere/booking-core/internal/logger"
	"github.com/connectsphere/booking-core/internal/middleware"
	"github.com/connectsphere/booking-core/internal/payment"
	"github.com/connectsphere/booking-core/internal/queue"
	"github.com/connectsphere/booking-core/internal/repository"
	"github.com/connectsphere/booking-core/internal/router"
	"github.com/connectsphere/booking-core/internal/service"
	_ "github.com/connectsphere/booking-core/migrations"
)

// Usage:
//
//	server                 run the HTTP API and the sweeper
//	server migrate [cmd]   run a goose command (default "up") against DB_*
func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger needs config, so this one goes to stderr
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogFile, cfg.IsProd())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		command := "up"
		if len(os.Args) > 2 {
			command = os.Args[2]
		}
		if err := goose.SetDialect("mysql"); err != nil {
			log.Fatal("goose dialect", zap.Error(err))
		}
		if err := goose.RunContext(ctx, command, db, "migrations", os.Args[min(len(os.Args), 3):]...); err != nil {
			log.Fatal("migration failed", zap.String("command", command), zap.Error(err))
		}
		log.Info("migrations done", zap.String("command", command))
		return
	}

	if err := run(ctx, cfg, db, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, db *sql.DB, log *zap.Logger) error {
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	// Notifications are optional: without a broker the services skip them.
	var notifier service.Notifier
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		go pub.Run(ctx)
		notifier = pub
		deliveries := logger.NewFileOnly(filepath.Join(filepath.Dir(cfg.LogFile), "notifications.log"))
		defer func() { _ = deliveries.Sync() }()
		go queue.StartNotificationConsumer(ctx, cfg.AMQPURL, deliveries, log)
	} else {
		log.Warn("RABBITMQ_URL not set, notifications disabled")
	}

	stores := service.Stores{
		Mentors:        repository.NewMentorRepo(db),
		Requests:       repository.NewRequestRepo(db),
		Slots:          repository.NewSlotRepo(db),
		Collaborations: repository.NewCollaborationRepo(db),
		Groups:         repository.NewGroupRepo(db),
		Attempts:       repository.NewPaymentAttemptRepo(db),
	}
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, log)

	slots := service.NewSlotRegistry(stores.Mentors, stores.Slots)
	requests := service.NewRequestManager(stores, notifier, log)
	finalizer := service.NewFinalizer(stores, gateway, notifier, service.FinalizerConfig{
		AccessWindow:    cfg.AccessWindow,
		GatewayTimeout:  cfg.PaymentTimeout,
		DefaultCurrency: cfg.Currency,
	}, log)
	sweeper := service.NewSweeper(stores, finalizer, notifier, cfg.RequestExpiry, cfg.SweepInterval, log)
	go sweeper.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Prometheus())

	slotHandler := handler.NewSlotHandler(slots, log)
	router.RegisterRoutes(e, db, slotHandler)
	router.RegisterBooking(e, router.Booking{
		Slots:     slotHandler,
		Requests:  handler.NewRequestHandler(requests, log),
		Payments:  handler.NewPaymentHandler(finalizer, log),
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
