package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/services"
)

// Error codes produced at the HTTP boundary
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeValidationFailed = "VALIDATION_ERROR"
	CodeError            = "ERROR"
)

// statusByCode maps service error codes to HTTP statuses
var statusByCode = map[string]int{
	services.CodeDecodeError:        fiber.StatusBadRequest,
	services.CodeColumnNotFound:     fiber.StatusBadRequest,
	services.CodeInsufficientData:   fiber.StatusBadRequest,
	services.CodeInvalidFuelType:    fiber.StatusBadRequest,
	services.CodeInvalidHorizon:     fiber.StatusBadRequest,
	services.CodeInvalidObservation: fiber.StatusBadRequest,
	services.CodeModelNotTrained:    fiber.StatusNotFound,
	services.CodeModelNotFound:      fiber.StatusNotFound,
	services.CodeInternalError:      fiber.StatusInternalServerError,
}

// StatusForCode returns the HTTP status for a service error code
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler returns a custom error handler middleware. Handlers return
// plain errors and this renders them as ErrorResponse bodies.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, detail := resolve(err)
		detail.Path = c.Path()

		fields := []interface{}{
			"path", c.Path(),
			"method", c.Method(),
			"status", status,
			"code", detail.Code,
			"error", err,
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request error", fields...)
		} else {
			logger.Warn("Request rejected", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{Error: detail})
	}
}

// resolve maps err to a status and response detail
func resolve(err error) (int, models.ErrorDetail) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeError
		switch fe.Code {
		case fiber.StatusBadRequest:
			code = CodeBadRequest
		case fiber.StatusNotFound:
			code = CodeNotFound
		}
		return fe.Code, models.ErrorDetail{Code: code, Message: fe.Message}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, models.ErrorDetail{
			Code:    CodeValidationFailed,
			Message: ve.Error(),
			Details: map[string]interface{}{"fields": ve.Fields},
		}
	}

	se := services.ToServiceError(err)
	status := StatusForCode(se.Code)
	message := se.Message
	if status >= fiber.StatusInternalServerError {
		message = "Internal Server Error"
	}
	return status, models.ErrorDetail{Code: se.Code, Message: message, Details: se.Details}
}
