package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/insurai/portal/internal/middleware"
	"github.com/insurai/portal/internal/notifications"
	"github.com/insurai/portal/internal/services"
	appErrors "github.com/insurai/portal/pkg/errors"
	"github.com/insurai/portal/pkg/logger"
	"github.com/insurai/portal/pkg/response"
)

// NotificationHandler exposes the read-state manager and its push channel.
type NotificationHandler struct {
	sessionAware
	manager *notifications.Manager
	poller  *notifications.Poller
	hub     *notifications.Hub
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(manager *notifications.Manager, poller *notifications.Poller, hub *notifications.Hub, auth *services.AuthService) *NotificationHandler {
	return &NotificationHandler{
		sessionAware: sessionAware{auth: auth},
		manager:      manager,
		poller:       poller,
		hub:          hub,
	}
}

type markMultipleRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// List handles GET /api/notifications?filter=all|unread|read&refresh=true.
func (h *NotificationHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	f, err := notifications.ParseFilter(c.Query("filter"))
	if err != nil {
		response.Error(c, appErrors.NewValidation(err.Error()).WithDetails(map[string]any{"field": "filter"}))
		return
	}

	recipient := notifications.RecipientOf(p)
	ctx := requestContext(c)
	if refresh := parseBoolQuery(c, "refresh"); refresh != nil && *refresh {
		if _, err := h.manager.Refresh(ctx, recipient); err != nil {
			h.fail(c, p, err)
			return
		}
	}

	items, err := h.manager.List(ctx, recipient, f)
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{
		"notifications": items,
		"unread_count":  h.manager.UnreadCount(recipient),
	}, &response.Meta{Total: len(items), Filter: string(f)})
}

// UnreadCount handles GET /api/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	count, err := h.manager.CountUnread(requestContext(c), notifications.RecipientOf(p))
	if err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	recipient := notifications.RecipientOf(p)
	if err := h.manager.MarkAsRead(requestContext(c), recipient, id); err != nil {
		h.fail(c, p, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"id":           id,
		"read":         true,
		"unread_count": h.manager.UnreadCount(recipient),
	})
}

// MarkMultipleRead handles POST /api/notifications/read. Each id succeeds or
// fails on its own.
func (h *NotificationHandler) MarkMultipleRead(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req markMultipleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	recipient := notifications.RecipientOf(p)
	results, err := h.manager.MarkMultipleAsRead(requestContext(c), recipient, req.IDs)
	if err != nil && h.endIfExpired(c, p, err) {
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"results":      results,
		"unread_count": h.manager.UnreadCount(recipient),
	})
}

// Stream handles GET /api/notifications/stream. The connection keeps the
// recipient subscribed to background polling until it closes.
func (h *NotificationHandler) Stream(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	recipient := notifications.RecipientOf(p)

	release, err := h.poller.Subscribe(recipient, middleware.BackendTokenFrom(c))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	defer release()

	if err := h.hub.Serve(recipient.Key(), c.Writer, c.Request); err != nil {
		logger.WithModule("notifications").Debug("stream closed",
			zap.String("recipient", recipient.Key()),
			zap.String("user_id", strconv.FormatInt(p.UserID, 10)),
			zap.Error(err),
		)
	}
}
