package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"citypulse/internal/store"
	domain "citypulse/pkg/types"
)

// NotificationsHandler serves notification history: listing, unread
// counts, and read receipts.
type NotificationsHandler struct {
	store store.Store
}

// NewNotificationsHandler creates a new NotificationsHandler.
func NewNotificationsHandler(s store.Store) *NotificationsHandler {
	return &NotificationsHandler{store: s}
}

// ListResponse is the paginated notification listing body.
type ListResponse struct {
	Notifications []domain.NotificationHistory `json:"notifications"`
	Total         int                          `json:"total"`
}

// UnreadResponse is the unread count body.
type UnreadResponse struct {
	Unread int `json:"unread"`
}

// MarkAllReadResponse reports how many records a bulk read touched.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// List returns a page of a user's notification history, newest first.
func (h *NotificationsHandler) List(c echo.Context) error {
	userID := c.Param("userID")

	q := &store.NotificationQuery{UserID: userID}
	if raw := c.QueryParam("status"); raw != "" {
		status := domain.NotificationStatus(raw)
		q.Status = &status
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		q.Limit = n
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		q.Offset = n
	}

	notifs, total, err := h.store.ListNotifications(c.Request().Context(), q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "listing notifications failed"})
	}
	if notifs == nil {
		notifs = []domain.NotificationHistory{}
	}

	return c.JSON(http.StatusOK, ListResponse{Notifications: notifs, Total: total})
}

// Get returns a single notification by id.
func (h *NotificationsHandler) Get(c echo.Context) error {
	n, err := h.store.GetNotification(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "loading notification failed"})
	}
	return c.JSON(http.StatusOK, n)
}

// Unread returns the user's unread notification count.
func (h *NotificationsHandler) Unread(c echo.Context) error {
	count, err := h.store.CountUnread(c.Request().Context(), c.Param("userID"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "counting unread failed"})
	}
	return c.JSON(http.StatusOK, UnreadResponse{Unread: count})
}

// MarkRead marks a single notification as read. Repeating the call is
// harmless.
func (h *NotificationsHandler) MarkRead(c echo.Context) error {
	id := c.Param("id")

	err := h.store.MarkNotificationRead(c.Request().Context(), id, time.Now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
	case errors.Is(err, store.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "notification is in a terminal state"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "marking read failed"})
	}

	return c.JSON(http.StatusOK, StatusResponse{Status: "read"})
}

// MarkAllRead marks every unread notification for a user as read.
func (h *NotificationsHandler) MarkAllRead(c echo.Context) error {
	updated, err := h.store.MarkAllRead(c.Request().Context(), c.Param("userID"), time.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "marking all read failed"})
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}
