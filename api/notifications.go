package api

import (
	"net/http"

	"github.com/Domenick1991/servicebooking/internal/service/notification"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	service notification.NotificationUseCase
}

type listNotificationsQuery struct {
	UnreadOnly bool `form:"unread_only"`
	Page       int  `form:"page"`
	Size       int  `form:"size"`
}

func NewNotificationHandler(service notification.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.PATCH("/read-all", h.markAllRead)
	router.PATCH("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var q listNotificationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "query", err)
		return
	}
	page, err := h.service.List(c.Request.Context(), actor.ID, q.UnreadOnly, q.Page, q.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *NotificationHandler) markRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actor.ID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) markAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), actor.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
