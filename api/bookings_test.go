package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/servicebooking/internal/auth"
	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, actor domain.Actor, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ListBookings(ctx context.Context, actor domain.Actor, input booking.ListBookingsInput) (*domain.Page[domain.Booking], error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page[domain.Booking]), args.Error(1)
}

func (m *MockBookingUseCase) RequestTransition(ctx context.Context, bookingID string, actor domain.Actor, target domain.BookingStatus, payload booking.TransitionPayload) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actor, target, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ExpireUnclaimed(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

var (
	testCustomer = domain.Actor{ID: "cust-1", Role: domain.RoleCustomer}
	testWorker   = domain.Actor{ID: "w-1", Role: domain.RoleWorker}
)

func newTestContext(method, target string, body any, actor *domain.Actor) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if actor != nil {
		auth.SetActor(c, *actor)
	}
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	req := createBookingRequest{
		CategoryID:     "plumbing",
		Description:    "leaking tap",
		Latitude:       -1.28,
		Longitude:      36.82,
		Address:        "12 Moi Avenue",
		EstimatedPrice: 40,
	}
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings", req, &testCustomer)

	created := &domain.Booking{ID: "b-1", CustomerID: "cust-1", Status: domain.BookingStatusPending, EstimatedPrice: 40}
	mockService.On("CreateBooking", c.Request.Context(), testCustomer, booking.CreateBookingInput{
		CategoryID:     "plumbing",
		Description:    "leaking tap",
		Latitude:       -1.28,
		Longitude:      36.82,
		Address:        "12 Moi Avenue",
		EstimatedPrice: 40,
	}).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b-1", resp.ID)
	assert.Equal(t, domain.BookingStatusPending, resp.Status)
	assert.Nil(t, resp.WorkerID)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_create_BadBody(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings", map[string]any{"category_id": "plumbing"}, &testCustomer)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
}

func TestBookingHandler_create_Unauthenticated(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings", map[string]any{}, nil)

	handler.create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_transition(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	final := 55.0
	c, w := newTestContext(http.MethodPatch, "/api/v1/bookings/b-1/status", transitionRequest{
		Status:     domain.BookingStatusCompleted,
		FinalPrice: &final,
	}, &testWorker)
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}

	workerID := "w-1"
	completed := &domain.Booking{ID: "b-1", WorkerID: &workerID, Status: domain.BookingStatusCompleted, FinalPrice: &final}
	mockService.On("RequestTransition", c.Request.Context(), "b-1", testWorker, domain.BookingStatusCompleted,
		booking.TransitionPayload{FinalPrice: &final}).Return(completed, nil)

	handler.transition(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.BookingStatusCompleted, resp.Status)
	require.NotNil(t, resp.FinalPrice)
	assert.Equal(t, 55.0, *resp.FinalPrice)
}

func TestBookingHandler_transition_Errors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		code     string
		validate func(t *testing.T, resp errorResponse)
	}{
		{
			name:   "invalid transition",
			err:    &domain.TransitionError{Current: domain.BookingStatusCompleted, Attempted: domain.BookingStatusCancelled},
			status: http.StatusConflict,
			code:   "INVALID_TRANSITION",
			validate: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "COMPLETED", resp.Current)
				assert.Equal(t, "CANCELLED", resp.Attempted)
			},
		},
		{name: "forbidden", err: domain.ErrForbidden, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "not found", err: domain.NewNotFound("booking", "b-1"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "lost claim", err: domain.ErrNotAvailable, status: http.StatusConflict, code: "NOT_AVAILABLE"},
		{
			name:   "validation",
			err:    domain.NewValidationError("final_price", "must be positive"),
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
			validate: func(t *testing.T, resp errorResponse) {
				assert.Equal(t, "final_price", resp.Field)
			},
		},
		{name: "unexpected", err: errors.New("connection reset"), status: http.StatusInternalServerError, code: "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := &MockBookingUseCase{}
			handler := NewBookingHandler(mockService)
			c, w := newTestContext(http.MethodPatch, "/api/v1/bookings/b-1/status", transitionRequest{Status: domain.BookingStatusCancelled}, &testWorker)
			c.Params = gin.Params{{Key: "id", Value: "b-1"}}
			mockService.On("RequestTransition", mock.Anything, "b-1", testWorker, domain.BookingStatusCancelled, mock.Anything).Return(nil, tc.err)

			handler.transition(c)

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tc.code, resp.Code)
			if tc.validate != nil {
				tc.validate(t, resp)
			}
		})
	}
}

func TestBookingHandler_accept(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/b-1/accept", nil, &testWorker)
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}

	workerID := "w-1"
	mockService.On("RequestTransition", c.Request.Context(), "b-1", testWorker, domain.BookingStatusAccepted, booking.TransitionPayload{}).
		Return(&domain.Booking{ID: "b-1", WorkerID: &workerID, Status: domain.BookingStatusAccepted}, nil)

	handler.accept(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_list(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/api/v1/bookings?status=PENDING&page=2&size=5", nil, &testCustomer)
	page := &domain.Page[domain.Booking]{Items: []domain.Booking{{ID: "b-1"}}, Total: 6, Page: 2, Size: 5}
	mockService.On("ListBookings", c.Request.Context(), testCustomer, booking.ListBookingsInput{
		Status: domain.BookingStatusPending, Page: 2, Size: 5,
	}).Return(page, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp domain.Page[domain.Booking]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Total)
	assert.Len(t, resp.Items, 1)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	c, w := newTestContext(http.MethodGet, "/api/v1/bookings/b-9", nil, &testCustomer)
	c.Params = gin.Params{{Key: "id", Value: "b-9"}}
	mockService.On("GetBooking", c.Request.Context(), testCustomer, "b-9").Return(nil, domain.ErrForbidden)

	handler.get(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
