package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fuelcast/fuelcast/internal/logging"
	"github.com/fuelcast/fuelcast/internal/models"
	"github.com/fuelcast/fuelcast/internal/services"
)

func doRequest(t *testing.T, app *fiber.App, method, path string) (int, models.ErrorResponse) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("Failed to parse response %s: %v", body, err)
	}
	return resp.StatusCode, errResp
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "BadRequest fiber error",
			err:            fiber.ErrBadRequest,
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   CodeBadRequest,
			expectedMsg:    "Bad Request",
		},
		{
			name:           "NotFound fiber error",
			err:            fiber.ErrNotFound,
			expectedStatus: fiber.StatusNotFound,
			expectedCode:   CodeNotFound,
			expectedMsg:    "Not Found",
		},
		{
			name:           "Custom fiber error",
			err:            fiber.NewError(fiber.StatusTeapot, "I'm a teapot"),
			expectedStatus: fiber.StatusTeapot,
			expectedCode:   CodeError,
			expectedMsg:    "I'm a teapot",
		},
		{
			name:           "insufficient data",
			err:            fmt.Errorf("diesel has 12 usable observations: %w", services.ErrInsufficientData),
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   services.CodeInsufficientData,
			expectedMsg:    "diesel has 12 usable observations: insufficient data",
		},
		{
			name:           "model not trained",
			err:            services.ErrModelNotTrained,
			expectedStatus: fiber.StatusNotFound,
			expectedCode:   services.CodeModelNotTrained,
			expectedMsg:    "model not trained",
		},
		{
			name:           "unknown fuel type",
			err:            fmt.Errorf("%w: %q", models.ErrUnknownFuelType, "kerosene"),
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   services.CodeInvalidFuelType,
		},
		{
			name:           "service error passes through",
			err:            services.NewServiceError(services.CodeModelNotFound, "no model for lpg"),
			expectedStatus: fiber.StatusNotFound,
			expectedCode:   services.CodeModelNotFound,
			expectedMsg:    "no model for lpg",
		},
		{
			name:           "internal error hides the cause",
			err:            errors.New("connection refused"),
			expectedStatus: fiber.StatusInternalServerError,
			expectedCode:   services.CodeInternalError,
			expectedMsg:    "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
			app.Get("/test", func(c *fiber.Ctx) error {
				return tt.err
			})

			status, resp := doRequest(t, app, "GET", "/test")
			if status != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, status)
			}
			if resp.Error.Code != tt.expectedCode {
				t.Errorf("Expected code %s, got %s", tt.expectedCode, resp.Error.Code)
			}
			if tt.expectedMsg != "" && resp.Error.Message != tt.expectedMsg {
				t.Errorf("Expected message %q, got %q", tt.expectedMsg, resp.Error.Message)
			}
			if resp.Error.Path != "/test" {
				t.Errorf("Expected path /test, got %s", resp.Error.Path)
			}
		})
	}
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.NewNop())})
	app.Get("/test", func(c *fiber.Ctx) error { return nil })

	status, resp := doRequest(t, app, "GET", "/missing")
	if status != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
	if resp.Error.Code != CodeNotFound {
		t.Errorf("Expected code %s, got %s", CodeNotFound, resp.Error.Code)
	}
}

func TestStatusForCode(t *testing.T) {
	tests := map[string]int{
		services.CodeDecodeError:    fiber.StatusBadRequest,
		services.CodeColumnNotFound: fiber.StatusBadRequest,
		services.CodeInvalidHorizon: fiber.StatusBadRequest,
		services.CodeModelNotFound:  fiber.StatusNotFound,
		services.CodeInternalError:  fiber.StatusInternalServerError,
		"SOMETHING_NEW":             fiber.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := StatusForCode(code); got != want {
			t.Errorf("StatusForCode(%s) = %d, want %d", code, got, want)
		}
	}
}
