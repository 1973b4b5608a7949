package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"linkly/internal/apperr"
	"linkly/internal/middleware"
)

type fieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// respondValidationError maps a binding failure to the error envelope:
// malformed JSON is a JSON_PARSE_ERROR, everything else a VALIDATION_ERROR
// with one detail per offending field.
func respondValidationError(c *gin.Context, err error) {
	var (
		validationErrors validator.ValidationErrors
		syntaxErr        *json.SyntaxError
		typeErr          *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &validationErrors):
		details := make([]fieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			field := lowerCamel(fe.Field())
			details = append(details, fieldError{Path: field, Message: validationMessage(field, fe)})
		}
		respondError(c, apperr.BadRequest("Validation failed", apperr.CodeValidation).WithDetails(details))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		respondError(c, apperr.BadRequest("Invalid JSON payload.", apperr.CodeJSONParse))
	case errors.As(err, &typeErr):
		details := []fieldError{{Path: typeErr.Field, Message: fmt.Sprintf("Expected %s", typeErr.Type.String())}}
		respondError(c, apperr.BadRequest("Validation failed", apperr.CodeValidation).WithDetails(details))
	case errors.Is(err, io.EOF):
		respondError(c, apperr.BadRequest("Request body is required", apperr.CodeValidation))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		key := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		details := []fieldError{{Path: key, Message: fmt.Sprintf("Unrecognized key: %q", key)}}
		respondError(c, apperr.BadRequest("Validation failed", apperr.CodeValidation).WithDetails(details))
	default:
		respondError(c, apperr.BadRequest("Invalid request format", apperr.CodeValidation))
	}
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email address"
	case "url":
		return "Invalid URL"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s is too long", field)
		}
		return fmt.Sprintf("%s has too many items", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
