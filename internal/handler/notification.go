package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/response"
)

type NotificationResponseData struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Read      bool            `json:"read"`
	CreatedAt time.Time       `json:"created_at"`
}

type notificationHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
}

func NewNotificationHandler(db repository.Database, errHandler *errHandler.ErrorHandler) *notificationHandler {
	return &notificationHandler{
		db:         db,
		errHandler: errHandler,
	}
}

func (h *notificationHandler) HandleMyNotifications(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	notifications, err := h.db.Notification().ListByUser(user.ID, unreadOnly)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*NotificationResponseData, len(notifications))
	for i, notification := range notifications {
		data[i] = &NotificationResponseData{
			ID:        notification.ID,
			Kind:      notification.Kind,
			Message:   notification.Message,
			Data:      notification.Data,
			Read:      notification.Read,
			CreatedAt: notification.CreatedAt,
		}
	}

	message := "Notifications fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *notificationHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	count, err := h.db.Notification().UnreadCount(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := map[string]int{
		"unread": count,
	}
	err = response.JSONOkResponse(w, data, "Unread count fetched successfully", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *notificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	notificationID := r.PathValue("id")

	if err := h.db.Notification().MarkRead(notificationID, user.ID); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err := response.JSONOkResponse(w, nil, "Notification marked as read", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *notificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	if err := h.db.Notification().MarkAllRead(user.ID); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err := response.JSONOkResponse(w, nil, "All notifications marked as read", nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
