package presenter

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequest(c echo.Context, err error) error {
	slog.InfoContext(c.Request().Context(), "bad request", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.InfoContext(c.Request().Context(), "bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "internal error", slog.String("error", err.Error()), slog.String("module", "rest"))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

// Error maps domain errors to their HTTP status.
func Error(c echo.Context, err error) error {
	var validation domain.ValidationError
	var notFound domain.NotFoundError
	var conflict domain.ConflictError

	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &notFound):
		return NotFound(c, notFound.Error())
	case errors.Is(err, domain.ErrAccessDenied):
		return Forbidden(c, domain.ErrAccessDenied.Error())
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: conflict.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		return Unauthorized(c, domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrAuthDependency):
		slog.WarnContext(c.Request().Context(), "identity service unavailable", slog.String("error", err.Error()), slog.String("module", "rest"))
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "identity service unavailable"})
	default:
		return InternalError(c, err)
	}
}
