package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/servicebooking/internal/domain"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	CategoryID     string     `json:"category_id" binding:"required"`
	Description    string     `json:"description" binding:"required"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Address        string     `json:"address" binding:"required"`
	EstimatedPrice float64    `json:"estimated_price"`
	ScheduledAt    *time.Time `json:"scheduled_at"`
	WorkerID       string     `json:"worker_id"`
}

type transitionRequest struct {
	Status     domain.BookingStatus `json:"status" binding:"required"`
	FinalPrice *float64             `json:"final_price"`
	WorkerID   string               `json:"worker_id"`
}

type acceptRequest struct {
	WorkerID string `json:"worker_id"`
}

type listBookingsQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.PATCH("/:id/status", h.transition)
	router.POST("/:id/accept", h.accept)
}

// create godoc
// @Summary Create a booking
// @Tags bookings
// @Accept json
// @Produce json
// @Success 201 {object} domain.Booking
// @Router /bookings [post]
func (h *BookingHandler) create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), actor, booking.CreateBookingInput{
		CategoryID:     req.CategoryID,
		Description:    req.Description,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Address:        req.Address,
		EstimatedPrice: req.EstimatedPrice,
		ScheduledAt:    req.ScheduledAt,
		WorkerID:       req.WorkerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) list(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var q listBookingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "query", err)
		return
	}

	page, err := h.service.ListBookings(c.Request.Context(), actor, booking.ListBookingsInput{
		Status: domain.BookingStatus(q.Status),
		Page:   q.Page,
		Size:   q.Size,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *BookingHandler) get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// transition godoc
// @Summary Move a booking to another status
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} domain.Booking
// @Failure 409 {object} errorResponse
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) transition(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	b, err := h.service.RequestTransition(c.Request.Context(), c.Param("id"), actor, req.Status, booking.TransitionPayload{
		FinalPrice: req.FinalPrice,
		WorkerID:   req.WorkerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// accept is shorthand for a transition to ACCEPTED and follows the same rules.
func (h *BookingHandler) accept(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req acceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "body", err)
			return
		}
	}

	b, err := h.service.RequestTransition(c.Request.Context(), c.Param("id"), actor, domain.BookingStatusAccepted, booking.TransitionPayload{
		WorkerID: req.WorkerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
