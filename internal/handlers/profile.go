package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsaver/cloudsaver/internal/users"
)

type ProfileHandler struct {
	userService *users.Service
}

func NewProfileHandler(userService *users.Service) *ProfileHandler {
	return &ProfileHandler{userService: userService}
}

func (h *ProfileHandler) Register(e *echo.Echo, requireAuth echo.MiddlewareFunc) {
	group := e.Group("/profile", requireAuth)
	group.GET("", h.Get)
	group.PATCH("", h.Update)
}

func (h *ProfileHandler) Get(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), sess.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *ProfileHandler) Update(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	var req users.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DisplayName == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "display_name is required")
	}
	user, err := h.userService.UpdateDisplayName(c.Request().Context(), sess.UserID, *req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
