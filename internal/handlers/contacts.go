package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudsaver/cloudsaver/internal/auth"
	"github.com/cloudsaver/cloudsaver/internal/contacts"
	"github.com/cloudsaver/cloudsaver/internal/identity"
)

type ContactsHandler struct {
	service *contacts.Service
	logger  *slog.Logger
}

func NewContactsHandler(service *contacts.Service) *ContactsHandler {
	return &ContactsHandler{
		service: service,
		logger:  slog.Default().With(slog.String("component", "handlers")),
	}
}

func (h *ContactsHandler) Register(e *echo.Echo, requireAuth echo.MiddlewareFunc) {
	group := e.Group("/contacts", requireAuth)
	group.GET("", h.List)
	group.POST("", h.Create)
	group.PATCH("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
	group.GET("/stream", h.Stream)
}

// List serves a point-in-time snapshot: server-side sort, then the same local
// search the live stream consumers apply client-side.
func (h *ContactsHandler) List(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	sortKey, err := contacts.ParseSortKey(c.QueryParam("sort"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.service.List(c.Request().Context(), sess.UserID, sortKey)
	if err != nil {
		return httpError(err)
	}
	if query := strings.TrimSpace(c.QueryParam("q")); query != "" {
		items = contacts.Search(items, query)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *ContactsHandler) Create(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	var req contacts.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Create(c.Request().Context(), sess.UserID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *ContactsHandler) Update(c echo.Context) error {
	sess, err := requireSession(c)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	var req contacts.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.Request().Context(), sess.UserID, id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *ContactsHandler) Delete(c echo.Context) error {
	if _, err := requireSession(c); err != nil {
		return err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func requireSession(c echo.Context) (identity.Session, error) {
	sess, err := auth.SessionFromContext(c)
	if err != nil {
		return identity.Session{}, err
	}
	if err := identity.ValidateUserID(sess.UserID); err != nil {
		return identity.Session{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return sess, nil
}
