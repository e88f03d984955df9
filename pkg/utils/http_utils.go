package utils

import (
	"errors"
	"net/http"

	"foodie-delivery/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithJSON writes a JSON response with the given status code.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// RespondWithError writes a uniform JSON error body.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service-layer sentinel errors to HTTP responses.
// Not-found and validation errors are resolved here so internal detail never
// leaks; conflicts map to 409 so clients can distinguish "already taken" from
// "does not exist"; anything else is a 500.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "delivery not found")
	case errors.Is(err, models.ErrDuplicateOrder):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrDeliveryConflict):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrNoRiderAvailable):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidCoordinates):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrInvalidStatus):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}
