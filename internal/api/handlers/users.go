package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"citypulse/internal/store"
	domain "citypulse/pkg/types"
)

// UsersHandler serves user registration and profile updates.
type UsersHandler struct {
	store store.Store
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(s store.Store) *UsersHandler {
	return &UsersHandler{store: s}
}

// RegisterUserRequest is the user registration body. Coordinates are
// optional but must come as a pair; channels may be set later.
type RegisterUserRequest struct {
	Nickname  string                    `json:"nickname"`
	Interests []domain.InterestCategory `json:"interests"`
	Latitude  *float64                  `json:"latitude,omitempty"`
	Longitude *float64                  `json:"longitude,omitempty"`
	Channels  *domain.ChannelTargets    `json:"channels,omitempty"`
}

// LocationRequest is the location update body.
type LocationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// InterestsRequest is the interest replacement body.
type InterestsRequest struct {
	Interests []domain.InterestCategory `json:"interests"`
}

// Register creates a user with their declared interests and optional
// delivery targets.
func (h *UsersHandler) Register(c echo.Context) error {
	var req RegisterUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.Nickname == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "nickname is required"})
	}
	if msg := validateInterests(req.Interests); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude must be set together"})
	}
	if req.Latitude != nil {
		if msg := validateCoordinate(*req.Latitude, *req.Longitude); msg != "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
		}
	}

	u := &domain.User{
		Nickname:  req.Nickname,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Interests: req.Interests,
		Active:    true,
	}
	ctx := c.Request().Context()
	if err := h.store.CreateUser(ctx, u); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "creating user failed"})
	}
	if req.Channels != nil {
		if err := h.store.SetChannelTargets(ctx, u.ID, req.Channels); err != nil {
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "saving channel targets failed"})
		}
	}

	return c.JSON(http.StatusCreated, u)
}

// Get returns one user with their interests.
func (h *UsersHandler) Get(c echo.Context) error {
	u, err := h.store.GetUser(c.Request().Context(), c.Param("userID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "loading user failed"})
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateLocation stores a user's last-known coordinate.
func (h *UsersHandler) UpdateLocation(c echo.Context) error {
	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if msg := validateCoordinate(req.Latitude, req.Longitude); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	}

	err := h.store.UpdateUserLocation(c.Request().Context(), c.Param("userID"), req.Latitude, req.Longitude)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "updating location failed"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "location updated"})
}

// SetInterests replaces a user's declared interest set.
func (h *UsersHandler) SetInterests(c echo.Context) error {
	var req InterestsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if msg := validateInterests(req.Interests); msg != "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
	}

	ctx := c.Request().Context()
	userID := c.Param("userID")
	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "loading user failed"})
	}
	if err := h.store.SetUserInterests(ctx, userID, req.Interests); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "saving interests failed"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "interests updated"})
}

// SetChannels replaces a user's delivery targets.
func (h *UsersHandler) SetChannels(c echo.Context) error {
	var req domain.ChannelTargets
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.Request().Context()
	userID := c.Param("userID")
	if _, err := h.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "loading user failed"})
	}
	if err := h.store.SetChannelTargets(ctx, userID, &req); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "saving channel targets failed"})
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "channels updated"})
}

func validateInterests(interests []domain.InterestCategory) string {
	for _, in := range interests {
		if !domain.ValidInterest(in) {
			return "unknown interest category: " + string(in)
		}
	}
	return ""
}

func validateCoordinate(lat, lng float64) string {
	if lat < -90 || lat > 90 {
		return "latitude out of range"
	}
	if lng < -180 || lng > 180 {
		return "longitude out of range"
	}
	return ""
}
