package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// FieldError describes one failed validation rule
type FieldError struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ValidationError is returned when a request does not satisfy its rules
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// BindAndValidate parses the request body into req, fills defaults and
// validates it. An empty body leaves every field at its default.
func BindAndValidate(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		}
	}
	return applyAndValidate(c, req)
}

// BindQueryAndValidate is BindAndValidate for query parameters
func BindQueryAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := c.QueryParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
	}
	return applyAndValidate(c, req)
}

func applyAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := defaults.Set(req); err != nil {
		return fmt.Errorf("failed to apply request defaults: %w", err)
	}

	if err := validate.StructCtx(c.UserContext(), req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]FieldError, 0, len(validationErrors))
			for _, e := range validationErrors {
				fields = append(fields, FieldError{
					Code:    "ERR_" + strings.ToUpper(e.Tag()),
					Field:   e.Field(),
					Message: fieldMessage(e),
					Params:  fieldParams(e),
				})
			}
			return &ValidationError{Fields: fields}
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": fe.Param()}
	case "gt":
		return map[string]interface{}{"value": fe.Param()}
	case "max", "lte":
		return map[string]interface{}{"max": fe.Param()}
	case "oneof":
		return map[string]interface{}{"options": strings.Split(fe.Param(), " ")}
	}
	return nil
}
