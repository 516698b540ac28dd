package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeSendFailed         = "SEND_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
)

// AppError represents an application error
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON response structure for errors
type ErrorResponse struct {
	Error   ErrorBody `json:"error"`
	TraceID string    `json:"trace_id,omitempty"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToJSON converts an error to the standard JSON response
func ToJSON(err error, traceID string) (int, []byte) {
	appErr := Resolve(err)
	if appErr == nil {
		appErr = &AppError{
			Code:    CodeInternal,
			Message: "An internal error occurred",
		}
	}

	response := ErrorResponse{
		Error: ErrorBody{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		TraceID: traceID,
	}

	data, _ := json.Marshal(response)
	return HTTPStatus(appErr), data
}

// Resolve picks the AppError that decides how err is reported to a caller.
// A client error (validation, not found, conflict) anywhere in the chain wins,
// so a rejected write stays a 4xx even after a fallback wrapped it.
// Otherwise the outermost AppError is used. Returns nil if the chain has none.
func Resolve(err error) *AppError {
	var outer, client *AppError
	for e := err; e != nil; e = errors.Unwrap(e) {
		appErr, ok := e.(*AppError)
		if !ok {
			continue
		}
		if outer == nil {
			outer = appErr
		}
		if isClientCode(appErr.Code) {
			client = appErr
		}
	}
	if client != nil {
		return client
	}
	return outer
}

// HTTPStatus returns the HTTP status code for an error
func HTTPStatus(err error) int {
	appErr := Resolve(err)
	if appErr == nil {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeSendFailed:
		return http.StatusBadGateway
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GRPCStatus converts an error to a gRPC status
func GRPCStatus(err error) error {
	appErr := Resolve(err)
	if appErr == nil {
		return status.Error(codes.Internal, "internal error")
	}

	var code codes.Code
	switch appErr.Code {
	case CodeValidation:
		code = codes.InvalidArgument
	case CodeNotFound:
		code = codes.NotFound
	case CodeConflict:
		code = codes.AlreadyExists
	case CodeServiceUnavailable, CodeSendFailed:
		code = codes.Unavailable
	case CodeUnauthorized:
		code = codes.Unauthenticated
	case CodeForbidden:
		code = codes.PermissionDenied
	default:
		code = codes.Internal
	}

	return status.Error(code, appErr.Message)
}

// FromGRPCStatus converts a gRPC status to an AppError
func FromGRPCStatus(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	st, ok := status.FromError(err)
	if !ok {
		return NewInternal("unknown error", err)
	}

	var code string
	switch st.Code() {
	case codes.InvalidArgument:
		code = CodeValidation
	case codes.NotFound:
		code = CodeNotFound
	case codes.AlreadyExists:
		code = CodeConflict
	case codes.Unavailable, codes.DeadlineExceeded:
		code = CodeServiceUnavailable
	case codes.Unauthenticated:
		code = CodeUnauthorized
	case codes.PermissionDenied:
		code = CodeForbidden
	default:
		code = CodeInternal
	}

	return &AppError{
		Code:    code,
		Message: st.Message(),
		Err:     err,
	}
}

// Constructor functions

// NewValidation creates a validation error
func NewValidation(message string, details interface{}) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
	}
}

// NewNotFound creates a not found error
func NewNotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id '%v' not found", resource, id),
	}
}

// NewConflict creates a conflict error
func NewConflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewServiceUnavailable creates an error for a degraded dependency
func NewServiceUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    CodeServiceUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewSendFailed creates a mail delivery error for the given recipient
func NewSendFailed(to string, err error) *AppError {
	return &AppError{
		Code:    CodeSendFailed,
		Message: fmt.Sprintf("failed to send mail to %s", to),
		Err:     err,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// Is reports whether any AppError in err's chain carries code.
func Is(err error, code string) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if appErr, ok := e.(*AppError); ok && appErr.Code == code {
			return true
		}
	}
	return false
}

// IsClientError reports whether err was caused by the caller's input
// rather than by a failing dependency.
func IsClientError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if appErr, ok := e.(*AppError); ok && isClientCode(appErr.Code) {
			return true
		}
	}
	return false
}

func isClientCode(code string) bool {
	switch code {
	case CodeValidation, CodeNotFound, CodeConflict:
		return true
	}
	return false
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message + ": " + appErr.Message,
			Details: appErr.Details,
			Err:     err,
		}
	}
	return NewInternal(message, err)
}
