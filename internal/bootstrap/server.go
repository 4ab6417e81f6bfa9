package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/servicebooking/api"
	"github.com/Domenick1991/servicebooking/config"
	"github.com/Domenick1991/servicebooking/internal/auth"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/Domenick1991/servicebooking/internal/service/notification"
	"github.com/Domenick1991/servicebooking/internal/service/payment"
	"github.com/Domenick1991/servicebooking/internal/service/review"
	"github.com/Domenick1991/servicebooking/internal/service/workers"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Services is everything the HTTP layer serves.
type Services struct {
	Bookings      booking.BookingUseCase
	Payments      payment.PaymentUseCase
	Reviews       review.ReviewUseCase
	Workers       workers.WorkerUseCase
	Notifications notification.NotificationUseCase
	Hub           api.Subscriber
	Tokens        *auth.Tokens
}

// Run starts the HTTP server and blocks until context is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(cfg *config.Config, svc Services, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log), corsMiddleware(cfg.HTTP.AllowedOrigins))
	router.Use(api.RateLimit(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFile("/docs/swagger.json", filepath.Join(cfg.HTTP.SwaggerDir, "swagger.json"))
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/swagger.json"))))
	}

	payments := api.NewPaymentHandler(svc.Payments, cfg.Payments.WebhookSecret)
	payments.RegisterWebhook(router)

	authenticated := auth.Middleware(svc.Tokens)
	v1 := router.Group("/api/v1", authenticated)

	bookings := v1.Group("/bookings")
	api.NewBookingHandler(svc.Bookings).Register(bookings)
	payments.Register(bookings)
	api.NewReviewHandler(svc.Reviews).Register(bookings)

	api.NewWorkerHandler(svc.Workers).Register(v1.Group("/workers"))
	api.NewNotificationHandler(svc.Notifications).Register(v1.Group("/notifications"))

	ws := router.Group("/ws", authenticated)
	api.NewRealtimeHandler(svc.Bookings, svc.Hub, cfg.HTTP.AllowedOrigins, log).Register(ws)

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
