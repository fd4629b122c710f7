// Package response renders the success and error envelopes of the API.
package response

import (
	"net/http"

	deliverycontext "fintrack/internal/delivery/context"
	domainerrors "fintrack/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

func meta(c echo.Context) *Meta {
	return &Meta{
		RequestID: deliverycontext.GetRequestID(c),
	}
}

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, Body{
		Data: data,
		Meta: meta(c),
	})
}

// Error returns an error response
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	// Details should not be included for 5xx errors or authentication/authorization errors
	if statusCode >= 500 || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		details = nil
	}

	return c.JSON(statusCode, ErrorBody{
		Error: &Problem{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Meta: meta(c),
	})
}

// AppError renders a domain error with its kind's status.
func AppError(c echo.Context, err domainerrors.AppError) error {
	var details any
	if d := err.Details(); d != "" {
		details = d
	}

	return Error(c, err.HTTPCode(), err.ErrorCode(), err.Message(), details)
}

// NoContent acknowledges without a body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
