package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/service/payment"
	"github.com/Domenick1991/servicebooking/internal/service/workers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentUseCase struct {
	mock.Mock
}

func (m *MockPaymentUseCase) Capture(ctx context.Context, actor domain.Actor, bookingID string, input payment.CaptureInput) (*domain.Payment, error) {
	args := m.Called(ctx, actor, bookingID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) HandleWebhook(ctx context.Context, input payment.WebhookInput) (*domain.Payment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentUseCase) FailStale(ctx context.Context, olderThan time.Duration) ([]domain.Payment, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type MockWorkerUseCase struct {
	mock.Mock
}

func (m *MockWorkerUseCase) GetByID(ctx context.Context, id string) (*domain.Worker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Worker), args.Error(1)
}

func (m *MockWorkerUseCase) FindNearby(ctx context.Context, input workers.NearbyInput) (*domain.Page[domain.WorkerCandidate], error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page[domain.WorkerCandidate]), args.Error(1)
}

type MockNotificationUseCase struct {
	mock.Mock
}

func (m *MockNotificationUseCase) Notify(ctx context.Context, userID string, typ domain.NotificationType, title, body string, data map[string]any) error {
	return m.Called(ctx, userID, typ, title, body, data).Error(0)
}

func (m *MockNotificationUseCase) List(ctx context.Context, userID string, unreadOnly bool, page, size int) (*domain.Page[domain.Notification], error) {
	args := m.Called(ctx, userID, unreadOnly, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page[domain.Notification]), args.Error(1)
}

func (m *MockNotificationUseCase) MarkRead(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockNotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func TestPaymentHandler_capture(t *testing.T) {
	tests := []struct {
		name   string
		status domain.PaymentStatus
		want   int
	}{
		{name: "cash settles immediately", status: domain.PaymentStatusCompleted, want: http.StatusCreated},
		{name: "mobile money is pending", status: domain.PaymentStatusProcessing, want: http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService, "s3cret")

			input := payment.CaptureInput{Method: domain.PaymentMethodMpesa, PhoneNumber: "0712345678"}
			c, w := newTestContext(http.MethodPost, "/api/v1/bookings/b-1/payments", input, &testCustomer)
			c.Params = gin.Params{{Key: "id", Value: "b-1"}}
			mockService.On("Capture", c.Request.Context(), testCustomer, "b-1", input).
				Return(&domain.Payment{ID: "p-1", BookingID: "b-1", Status: tt.status}, nil)

			handler.capture(c)

			assert.Equal(t, tt.want, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestPaymentHandler_capture_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{name: "not completed", err: domain.ErrPaymentNotAllowed, want: http.StatusConflict, code: "PAYMENT_NOT_ALLOWED"},
		{name: "paid", err: domain.ErrAlreadyPaid, want: http.StatusConflict, code: "ALREADY_PAID"},
		{name: "processing", err: domain.ErrPaymentInProgress, want: http.StatusConflict, code: "PAYMENT_IN_PROGRESS"},
		{name: "gateway", err: domain.ErrPaymentGateway, want: http.StatusBadGateway, code: "PAYMENT_GATEWAY_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService, "s3cret")
			c, w := newTestContext(http.MethodPost, "/api/v1/bookings/b-1/payments",
				payment.CaptureInput{Method: domain.PaymentMethodCash}, &testCustomer)
			c.Params = gin.Params{{Key: "id", Value: "b-1"}}
			mockService.On("Capture", mock.Anything, testCustomer, "b-1", mock.Anything).Return(nil, tt.err)

			handler.capture(c)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestPaymentHandler_webhook(t *testing.T) {
	mockService := &MockPaymentUseCase{}
	handler := NewPaymentHandler(mockService, "s3cret")

	c, w := newTestContext(http.MethodPost, "/webhooks/payments", webhookRequest{Reference: "p-1", Success: true}, nil)
	c.Request.Header.Set(webhookSecretHeader, "s3cret")
	mockService.On("HandleWebhook", c.Request.Context(), payment.WebhookInput{Reference: "p-1", Success: true}).
		Return(&domain.Payment{ID: "p-1", Status: domain.PaymentStatusCompleted}, nil)

	handler.webhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestPaymentHandler_webhook_Secret(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		header     string
	}{
		{name: "missing header", configured: "s3cret", header: ""},
		{name: "wrong secret", configured: "s3cret", header: "guess"},
		{name: "webhook disabled", configured: "", header: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockPaymentUseCase{}
			handler := NewPaymentHandler(mockService, tt.configured)
			c, w := newTestContext(http.MethodPost, "/webhooks/payments", webhookRequest{Reference: "p-1"}, nil)
			if tt.header != "" {
				c.Request.Header.Set(webhookSecretHeader, tt.header)
			}

			handler.webhook(c)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			mockService.AssertNumberOfCalls(t, "HandleWebhook", 0)
		})
	}
}

func TestWorkerHandler_nearby(t *testing.T) {
	mockService := &MockWorkerUseCase{}
	handler := NewWorkerHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/api/v1/workers/nearby?lat=-1.28&lon=36.82&category_id=plumbing&radius_km=5", nil, &testCustomer)
	page := &domain.Page[domain.WorkerCandidate]{
		Items: []domain.WorkerCandidate{{Worker: domain.Worker{ID: "w-1"}, DistanceKm: 1.2}},
		Total: 1, Page: 1, Size: 20,
	}
	mockService.On("FindNearby", c.Request.Context(), workers.NearbyInput{
		Latitude: -1.28, Longitude: 36.82, CategoryID: "plumbing", RadiusKm: 5,
	}).Return(page, nil)

	handler.nearby(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp domain.Page[domain.WorkerCandidate]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "w-1", resp.Items[0].Worker.ID)
}

func TestWorkerHandler_nearby_MissingCoordinates(t *testing.T) {
	mockService := &MockWorkerUseCase{}
	handler := NewWorkerHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/api/v1/workers/nearby?category_id=plumbing", nil, &testCustomer)

	handler.nearby(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNumberOfCalls(t, "FindNearby", 0)
}

func TestNotificationHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		mockService := &MockNotificationUseCase{}
		handler := NewNotificationHandler(mockService)
		c, w := newTestContext(http.MethodGet, "/api/v1/notifications?unread_only=true", nil, &testWorker)
		mockService.On("List", c.Request.Context(), "w-1", true, 0, 0).
			Return(&domain.Page[domain.Notification]{Items: []domain.Notification{{ID: "n-1"}}, Total: 1, Page: 1, Size: 20}, nil)

		handler.list(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("mark read", func(t *testing.T) {
		mockService := &MockNotificationUseCase{}
		handler := NewNotificationHandler(mockService)
		c, w := newTestContext(http.MethodPatch, "/api/v1/notifications/n-1/read", nil, &testWorker)
		c.Params = gin.Params{{Key: "id", Value: "n-1"}}
		mockService.On("MarkRead", c.Request.Context(), "w-1", "n-1").Return(domain.NewNotFound("notification", "n-1"))

		handler.markRead(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		mockService := &MockNotificationUseCase{}
		handler := NewNotificationHandler(mockService)
		c, w := newTestContext(http.MethodPatch, "/api/v1/notifications/read-all", nil, &testWorker)
		mockService.On("MarkAllRead", c.Request.Context(), "w-1").Return(int64(3), nil)

		handler.markAllRead(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"updated":3}`, w.Body.String())
	})
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "limits are per client")
}

func TestRateLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(0, 0))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLimiterStore_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := newLimiterStore(1, 1)
	store.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		store.get(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	assert.Equal(t, 1000, store.size())

	now = now.Add(limiterIdleTTL / 2)
	store.get("10.0.0.1")
	assert.Equal(t, 1001, store.size(), "nothing is idle long enough yet")

	now = now.Add(limiterIdleTTL)
	kept := store.get("10.0.0.1")
	assert.Equal(t, 1, store.size(), "rotating addresses do not accumulate")
	assert.Same(t, kept, store.get("10.0.0.1"), "an active client keeps its limiter")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws/bookings/b-1", nil)
	assert.True(t, check(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
