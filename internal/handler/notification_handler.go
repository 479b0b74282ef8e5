package handler

import (
	"net/http"

	"betonflow/internal/middleware"
	"betonflow/internal/service"
	"betonflow/pkg/pagination"
	"betonflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	jwtSecret           []byte
}

func NewNotificationHandler(notificationService service.NotificationService, jwtSecret []byte) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, jwtSecret: jwtSecret}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/api/notifications", middleware.RequireAuth(h.jwtSecret))
	{
		notifications.GET("", h.List)
		notifications.PUT("/:id/read", h.MarkRead)
		// POST, not PUT: keeps the static segment out of the PUT tree where
		// it would collide with :id
		notifications.POST("/read-all", h.MarkAllRead)
	}
}

// List returns notifications addressed to the caller's role
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread  query     bool  false  "Unread only"
// @Param        page    query     int   false  "Page number"
// @Param        limit   query     int   false  "Items per page"
// @Success      200     {object}  response.Response{data=response.ListData}
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)
	params := pagination.Parse(c)
	unreadOnly := c.DefaultQuery("unread", "false") == "true"

	items, total, err := h.notificationService.List(c.Request.Context(), actor.Role, unreadOnly, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, items, total, params.Page, params.Limit))
}

// MarkRead marks one notification as read
// @Summary      Mark notification read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Router       /api/notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "marked read"}))
}

// MarkAllRead marks every unread notification of the caller's role as read
// @Summary      Mark all notifications read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor := middleware.GetActor(c)
	if err := h.notificationService.MarkAllRead(c.Request.Context(), actor.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "all marked read"}))
}
