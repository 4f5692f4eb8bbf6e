package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/fieldserve/scheduling-backend/internal/domain/errors"
)

// mapError converts an error into an HTTP status and wire-level error body.
func mapError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, &ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make(map[string]string, len(validationErrs))
		for _, fe := range validationErrs {
			fields[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Fields:  fields,
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "INVALID_JSON",
			Message: fmt.Sprintf("invalid JSON at position %d", syntaxErr.Offset),
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "TYPE_MISMATCH",
			Message: fmt.Sprintf("invalid type for field %q", typeErr.Field),
		}
	}

	// encoding/json reports unknown fields as a bare error.
	if strings.Contains(err.Error(), "unknown field") {
		return http.StatusBadRequest, &ErrorResponse{
			Code:    "UNKNOWN_FIELD",
			Message: err.Error(),
		}
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, &ErrorResponse{
			Code:    "REQUEST_CANCELED",
			Message: "request was canceled",
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, &ErrorResponse{
			Code:    "REQUEST_TIMEOUT",
			Message: "request timed out",
		}
	}

	return http.StatusInternalServerError, &ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}
}
