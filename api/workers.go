package api

import (
	"net/http"

	"github.com/Domenick1991/servicebooking/internal/service/workers"
	"github.com/gin-gonic/gin"
)

type WorkerHandler struct {
	service workers.WorkerUseCase
}

type nearbyQuery struct {
	Latitude   *float64 `form:"lat" binding:"required"`
	Longitude  *float64 `form:"lon" binding:"required"`
	CategoryID string   `form:"category_id" binding:"required"`
	RadiusKm   float64  `form:"radius_km"`
	Page       int      `form:"page"`
	Size       int      `form:"size"`
}

func NewWorkerHandler(service workers.WorkerUseCase) *WorkerHandler {
	return &WorkerHandler{service: service}
}

func (h *WorkerHandler) Register(router *gin.RouterGroup) {
	router.GET("/nearby", h.nearby)
	router.GET("/:id", h.get)
}

// nearby godoc
// @Summary Find workers near a point
// @Tags workers
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param category_id query string true "Service category"
// @Param radius_km query number false "Search radius"
// @Router /workers/nearby [get]
func (h *WorkerHandler) nearby(c *gin.Context) {
	var q nearbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "query", err)
		return
	}

	page, err := h.service.FindNearby(c.Request.Context(), workers.NearbyInput{
		Latitude:   *q.Latitude,
		Longitude:  *q.Longitude,
		CategoryID: q.CategoryID,
		RadiusKm:   q.RadiusKm,
		Page:       q.Page,
		Size:       q.Size,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *WorkerHandler) get(c *gin.Context) {
	w, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
