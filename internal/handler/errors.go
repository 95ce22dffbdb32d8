package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"story-engine/internal/models"
)

// APIError is the standardized error response body.
type APIError struct {
	Message string `json:"message"`
}

// handleServiceError maps service sentinels onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to the client.
func handleServiceError(c echo.Context, err error, logger *zap.Logger) error {
	var status int
	switch {
	case errors.Is(err, models.ErrChapterNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrEmptySlot):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrChapterLocked):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidChoice),
		errors.Is(err, models.ErrNoChoicesHere),
		errors.Is(err, models.ErrNoMinigameHere),
		errors.Is(err, models.ErrChoiceRequired),
		errors.Is(err, models.ErrChapterFinished),
		errors.Is(err, models.ErrNotAtChapterEnd),
		errors.Is(err, models.ErrInvalidQuizAnswer),
		errors.Is(err, models.ErrSlotIndexOutOfRange),
		errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	default:
		logger.Error("Unhandled service error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
	}
	return c.JSON(status, APIError{Message: err.Error()})
}
