package api

import (
	"net/http"

	"github.com/Domenick1991/servicebooking/internal/service/review"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	service review.ReviewUseCase
}

func NewReviewHandler(service review.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/review", h.create)
}

func (h *ReviewHandler) create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req review.CreateReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	r, err := h.service.CreateReview(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
