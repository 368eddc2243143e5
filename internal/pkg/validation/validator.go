package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StructValidator is a singleton instance of the validator.
var StructValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form/json name so errors line up with the inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
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
	return v
}

// ErrorResponse represents a validation error message.
type ErrorResponse struct {
	FailedField string `json:"failed_field"`
	Field       string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
	Message     string `json:"message"`
}

// FieldErrors groups validation messages by field name, in the order they were reported.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// ValidateStruct performs validation on a struct.
// It returns a slice of ErrorResponse if validation fails, or nil otherwise.
func ValidateStruct(payload interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := StructValidator.Struct(payload)
	if err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{Tag: "invalid", Message: err.Error()}}
		}
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Field = err.Field()
			element.Tag = err.Tag()
			if !isSecret(err.Field()) {
				element.Value = fmt.Sprintf("%v", err.Value())
			}
			element.Message = generateValidationMessage(err)
			errors = append(errors, &element)
		}
	}
	return errors
}

// Validate runs ValidateStruct and groups the result per field. It returns nil when payload is valid.
func Validate(payload interface{}) FieldErrors {
	errs := ValidateStruct(payload)
	if len(errs) == 0 {
		return nil
	}
	grouped := FieldErrors{}
	for _, e := range errs {
		grouped.Add(e.Field, e.Message)
	}
	return grouped
}

func isSecret(field string) bool {
	return strings.Contains(strings.ToLower(field), "password")
}

func humanize(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// generateValidationMessage creates a user-friendly message for a validation error.
func generateValidationMessage(err validator.FieldError) string {
	field := humanize(err.Field())
	tag := err.Tag()
	param := err.Param()
	kind := err.Kind()

	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "min":
		switch kind {
		case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("The %s field must have at least %s characters.", field, param)
		default:
			return fmt.Sprintf("The %s field must be at least %s.", field, param)
		}
	case "max":
		switch kind {
		case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("The %s field must have at most %s characters.", field, param)
		default:
			return fmt.Sprintf("The %s field must be at most %s.", field, param)
		}
	case "len":
		return fmt.Sprintf("The %s field must have exactly %s characters.", field, param)
	case "alphanum":
		return fmt.Sprintf("The %s field may only contain alpha-numeric characters.", field)
	default:
		return fmt.Sprintf("The %s field is not valid (tag: %s).", field, tag)
	}
}

// ParseAndValidate is a utility function for JSON API handlers to parse the body and validate it.
// It returns true if parsing and validation are successful, false otherwise.
// If false, it sends the appropriate error response.
func ParseAndValidate(c *fiber.Ctx, payload interface{}) bool {
	if err := c.BodyParser(payload); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
		return false
	}

	validationErrors := ValidateStruct(payload)
	if validationErrors != nil {
		errorMessages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			errorMessages[i] = ve.Message
		}
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Validation failed",
			"details":  validationErrors,
			"messages": errorMessages,
		})
		return false
	}
	return true
}
