package main

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/avelier/doorkeeper/app/errors"
)

var validate = validator.New()

// validateRequest validates a DTO against its struct tags and converts
// the first batch of failures into a single invalid-input error.
func validateRequest(req interface{}) *appErrors.AppError {
	if err := validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return appErrors.NewInvalidInput(formatValidationErrors(validationErrors))
		}
		return appErrors.NewInvalidInput("Invalid request")
	}
	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid request"
	}

	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, formatFieldError(fieldErr))
	}
	return strings.Join(messages, "; ")
}

func formatFieldError(fieldErr validator.FieldError) string {
	field := strings.ToLower(fieldErr.Field())

	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// sanitizeInput strips surrounding whitespace and control characters
// from free-text fields.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// sanitizeEmail trims whitespace only. Case is preserved: two addresses
// differing in case are distinct accounts.
func sanitizeEmail(s string) string {
	return strings.TrimSpace(s)
}
