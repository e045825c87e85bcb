package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudsaver/cloudsaver/internal/auth"
	"github.com/cloudsaver/cloudsaver/internal/users"
)

type AuthHandler struct {
	userService *users.Service
	jwtSecret   string
	jwtExpiry   time.Duration
}

func NewAuthHandler(userService *users.Service, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	group := e.Group("/auth")
	group.POST("/register", h.SignUp)
	group.POST("/login", h.Login)
	group.POST("/logout", h.Logout)
	group.POST("/password_reset", h.RequestPasswordReset)
	group.POST("/password_reset/confirm", h.ConfirmPasswordReset)
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      users.User `json:"user"`
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	user, err := h.userService.Register(c.Request().Context(), users.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return httpError(err)
	}
	return h.respondWithSession(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	user, err := h.userService.Login(c.Request().Context(), users.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}
	return h.respondWithSession(c, http.StatusOK, user)
}

// Logout exists for client symmetry. Access tokens are short-lived HS256;
// nothing is revoked server-side.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.userService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "ok"})
}

func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req passwordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.userService.CompletePasswordReset(c.Request().Context(), req.Token, req.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) respondWithSession(c echo.Context, status int, user users.User) error {
	token, expiresAt, err := auth.GenerateToken(user.ID, user.Email, user.DisplayName, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(status, sessionResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
