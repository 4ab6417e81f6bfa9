package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/cache"
	"github.com/Domenick1991/servicebooking/internal/gateway"
	"github.com/Domenick1991/servicebooking/internal/kafka"
	"github.com/Domenick1991/servicebooking/internal/logger"
	"github.com/Domenick1991/servicebooking/internal/push"
	"github.com/Domenick1991/servicebooking/internal/realtime"
	"github.com/Domenick1991/servicebooking/internal/repository"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/Domenick1991/servicebooking/internal/service/notification"
	"github.com/Domenick1991/servicebooking/internal/service/payment"
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
	broadcaster := realtime.NewRedisBroadcaster(redisClient, lg)

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

	consumer := kafka.NewNotificationConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg)
	defer consumer.Close()

	sender := push.NewSender(lg)
	go func() {
		if err := consumer.Run(ctx, sender.Send); err != nil {
			lg.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	sweepTicker := time.NewTicker(cfg.Worker.SweepInterval())
	defer sweepTicker.Stop()

	lg.Info("worker started",
		zap.Duration("sweep_interval", cfg.Worker.SweepInterval()),
		zap.Duration("unclaimed_ttl", cfg.Booking.UnclaimedTTL()),
		zap.Duration("payment_timeout", cfg.Payments.Timeout()))

	for {
		select {
		case <-sweepTicker.C:
			expired, err := bookingService.ExpireUnclaimed(ctx, cfg.Booking.UnclaimedTTL())
			if err != nil {
				lg.Error("expire unclaimed bookings", zap.Error(err))
			} else if len(expired) > 0 {
				lg.Info("expired unclaimed bookings", zap.Int("count", len(expired)))
			}

			failed, err := paymentService.FailStale(ctx, cfg.Payments.Timeout())
			if err != nil {
				lg.Error("fail stale payments", zap.Error(err))
			} else if len(failed) > 0 {
				lg.Info("failed stale payments", zap.Int("count", len(failed)))
			}
		case <-ctx.Done():
			lg.Info("shutting down worker")
			return
		}
	}
}
