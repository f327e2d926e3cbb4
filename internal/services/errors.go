// Package services holds the forecasting engine and the price workflows that
// sit between the HTTP handlers and the price store.
package services

import (
	"errors"

	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/normalize"
)

var (
	// ErrInsufficientData is returned when a series is too short to train on
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelNotTrained is returned when a prediction is requested for a fuel type without a loaded model
	ErrModelNotTrained = errors.New("model not trained")

	// ErrModelNotFound is returned when no persisted model exists for a fuel type
	ErrModelNotFound = errors.New("model not found")

	// ErrInvalidHorizon is returned for a forecast horizon outside the served range
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrInvalidObservation is returned for a price write without a valid date or price
	ErrInvalidObservation = errors.New("invalid observation")
)

// Error codes surfaced to callers
const (
	CodeDecodeError        = "DECODE_ERROR"
	CodeColumnNotFound     = "COLUMN_NOT_FOUND"
	CodeInsufficientData   = "INSUFFICIENT_DATA"
	CodeModelNotTrained    = "MODEL_NOT_TRAINED"
	CodeModelNotFound      = "MODEL_NOT_FOUND"
	CodeInvalidFuelType    = "INVALID_FUEL_TYPE"
	CodeInvalidHorizon     = "INVALID_HORIZON"
	CodeInvalidObservation = "INVALID_OBSERVATION"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// errorCodes maps sentinel errors to caller-visible codes, checked in order
var errorCodes = []struct {
	err  error
	code string
}{
	{normalize.ErrDecode, CodeDecodeError},
	{models.ErrColumnNotFound, CodeColumnNotFound},
	{models.ErrUnknownFuelType, CodeInvalidFuelType},
	{ErrInsufficientData, CodeInsufficientData},
	{ErrModelNotTrained, CodeModelNotTrained},
	{ErrModelNotFound, CodeModelNotFound},
	{ErrInvalidHorizon, CodeInvalidHorizon},
	{ErrInvalidObservation, CodeInvalidObservation},
}

// ToServiceError translates err into a ServiceError. Errors that are already
// ServiceErrors are returned as is; unrecognized errors become INTERNAL_ERROR.
func ToServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}

	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return NewServiceError(m.code, err.Error())
		}
	}
	return NewServiceError(CodeInternalError, err.Error())
}
