package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsaver/cloudsaver/internal/contacts"
	"github.com/cloudsaver/cloudsaver/internal/users"
)

// httpError maps service errors onto HTTP responses. Anything unrecognized is
// treated as a store/transport failure: generic message, retryable status.
func httpError(err error) error {
	var validation *contacts.ValidationError
	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Error())
	case errors.Is(err, contacts.ErrDuplicatePhone):
		return echo.NewHTTPError(http.StatusConflict, contacts.ErrDuplicatePhone.Error())
	case errors.Is(err, contacts.ErrContactNotFound):
		return echo.NewHTTPError(http.StatusNotFound, contacts.ErrContactNotFound.Error())
	case errors.Is(err, users.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, users.ErrEmailTaken.Error())
	case errors.Is(err, users.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, users.ErrUserNotFound.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, users.ErrInvalidCredentials.Error())
	case errors.Is(err, users.ErrWeakPassword):
		return echo.NewHTTPError(http.StatusBadRequest, users.ErrWeakPassword.Error())
	case errors.Is(err, users.ErrInvalidResetToken):
		return echo.NewHTTPError(http.StatusBadRequest, users.ErrInvalidResetToken.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, "storage temporarily unavailable, please retry")
}
