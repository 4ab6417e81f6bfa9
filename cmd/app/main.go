package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/auth"
	"github.com/Domenick1991/servicebooking/internal/bootstrap"
	"github.com/Domenick1991/servicebooking/internal/cache"
	"github.com/Domenick1991/servicebooking/internal/gateway"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/Domenick1991/servicebooking/internal/logger"
	"github.com/Domenick1991/servicebooking/internal/realtime"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/Domenick1991/servicebooking/internal/service/notification"
	"github.com/Domenick1991/servicebooking/internal/service/payment"
	"github.com/Domenick1991/servicebooking/internal/service/review"
	"github.com/Domenick1991/servicebooking/internal/service/workers"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisClient := cache.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient, cfg.Booking.WorkerCacheTTL())

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		lg.Warn("kafka is unreachable, events will be dropped until it recovers", zap.Error(err))
	}

	hub := realtime.NewHub(lg)
	broadcaster := realtime.NewRedisBroadcaster(redisClient, lg)
	go func() {
		if err := broadcaster.Run(ctx, hub); err != nil && ctx.Err() == nil {
			lg.Error("realtime relay stopped", zap.Error(err))
		}
	}()

	bookingRepo := repository.NewBookingRepository(pool)
	notificationService := notification.NewNotificationService(
		repository.NewNotificationRepository(pool),
		producer,
		cfg.Kafka.NotificationsTopic,
		lg,
	)
	workerService := workers.NewWorkerService(
		repository.NewWorkerRepository(pool),
		redisCache,
		cfg.Matching.DefaultRadiusKm,
		cfg.Matching.MaxRadiusKm,
		lg,
	)
	bookingService := booking.NewBookingService(
		bookingRepo,
		workerService.Authoritative(),
		booking.WithNotifier(notificationService),
		booking.WithBroadcaster(broadcaster),
		booking.WithEvents(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithClaimLock(redisCache, cfg.Booking.ClaimLockTTL()),
		booking.WithLogger(lg),
	)
	paymentService := payment.NewPaymentService(
		repository.NewPaymentRepository(pool),
		bookingRepo,
		gateway.NewMobileMoneyGateway(cfg.Payments, lg),
		payment.WithNotifier(notificationService),
		payment.WithBroadcaster(broadcaster),
		payment.WithEvents(producer, cfg.Kafka.BookingEventsTopic),
		payment.WithLogger(lg),
	)
	reviewService := review.NewReviewService(
		repository.NewReviewRepository(pool),
		bookingRepo,
		notificationService,
		redisCache,
		lg,
	)

	err = bootstrap.Run(ctx, cfg, bootstrap.Services{
		Bookings:      bookingService,
		Payments:      paymentService,
		Reviews:       reviewService,
		Workers:       workerService,
		Notifications: notificationService,
		Hub:           hub,
		Tokens:        auth.NewTokens(cfg.Auth.JWTSecret),
	}, lg)
	if err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
