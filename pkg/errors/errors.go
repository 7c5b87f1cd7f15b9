package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard sentinel errors for common error cases
var (
	// ErrNotFound indicates the requested object, path or revision was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformed indicates tool output or an identifier could not be parsed
	ErrMalformed = errors.New("malformed data")

	// ErrGitOperationFailed indicates a git invocation exited with a failure
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrTimeout indicates a git invocation was killed after its deadline
	ErrTimeout = errors.New("operation timed out")

	// ErrRevisionNotExist indicates a revision could not be resolved
	ErrRevisionNotExist = errors.New("revision does not exist")

	// ErrParentNotExist indicates a commit has no parent at the requested position
	ErrParentNotExist = errors.New("parent does not exist")

	// ErrSubmoduleNotExist indicates the submodule is not declared in .gitmodules
	ErrSubmoduleNotExist = errors.New("submodule does not exist")

	// ErrDiffLine indicates the add/delete runs inside a diff section are unbalanced
	ErrDiffLine = errors.New("diff line error")

	// ErrConfigError indicates a configuration error
	ErrConfigError = errors.New("configuration error")

	// ErrInternalServer indicates an internal server error occurred
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode represents HTTP-like error codes
type ErrorCode int

const (
	CodeBadRequest          ErrorCode = http.StatusBadRequest
	CodeNotFound            ErrorCode = http.StatusNotFound
	CodeUnprocessable       ErrorCode = http.StatusUnprocessableEntity
	CodeInternalServerError ErrorCode = http.StatusInternalServerError
	CodeBadGateway          ErrorCode = http.StatusBadGateway
	CodeGatewayTimeout      ErrorCode = http.StatusGatewayTimeout
)

// AppError represents an application-level error with additional context
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface for comparison
func (e *AppError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	return int(e.Code)
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// NewAppError creates a new AppError with the given code, message, and underlying error
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotFound creates a new not found error. A nil err defaults to ErrNotFound.
func NotFound(resource string, err error) *AppError {
	if err == nil {
		err = ErrNotFound
	}
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), err)
}

// Malformed creates a new parse error naming the expected format.
func Malformed(format string, err error) *AppError {
	if err == nil {
		err = ErrMalformed
	} else if !errors.Is(err, ErrMalformed) {
		err = fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return NewAppError(CodeUnprocessable, format, err)
}

// Malformedf is Malformed with a formatted message and no underlying cause.
func Malformedf(format string, args ...any) *AppError {
	return Malformed(fmt.Sprintf(format, args...), nil)
}

// BadRequest creates a new bad request error
func BadRequest(message string, err error) *AppError {
	if message == "" {
		message = "invalid request"
	}
	if err == nil {
		err = ErrInvalidInput
	}
	return NewAppError(CodeBadRequest, message, err)
}

// InternalError creates a new internal server error
func InternalError(message string, err error) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalServerError, message, err)
}

// GitError creates a new git operation error carrying the captured stderr.
func GitError(operation, stderr string, err error) *AppError {
	if err == nil {
		err = ErrGitOperationFailed
	} else if !errors.Is(err, ErrGitOperationFailed) {
		err = fmt.Errorf("%w: %w", ErrGitOperationFailed, err)
	}
	msg := fmt.Sprintf("git %s failed", operation)
	if s := strings.TrimSpace(stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, s)
	}
	appErr := NewAppError(CodeBadGateway, msg, err)
	if stderr != "" {
		appErr.WithDetails(map[string]any{"stderr": stderr})
	}
	return appErr
}

// Timeout creates a new timeout error for a killed git invocation
func Timeout(operation string) *AppError {
	return NewAppError(CodeGatewayTimeout, fmt.Sprintf("git %s timed out", operation), ErrTimeout)
}

// ValidationError creates a new validation error with field details
func ValidationError(field, message string) *AppError {
	return NewAppError(CodeBadRequest, message, ErrInvalidInput).WithDetails(map[string]any{
		"field": field,
	})
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeNotFound {
		return true
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRevisionNotExist) ||
		errors.Is(err, ErrParentNotExist) || errors.Is(err, ErrSubmoduleNotExist)
}

// IsMalformed checks if an error is a parse or format error
func IsMalformed(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == CodeUnprocessable {
		return true
	}
	return errors.Is(err, ErrMalformed) || errors.Is(err, ErrDiffLine)
}

// IsBadRequest checks if an error is a bad request error
func IsBadRequest(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeBadRequest
	}
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsGitError checks if an error came from a failed git invocation
func IsGitError(err error) bool {
	return errors.Is(err, ErrGitOperationFailed)
}

// Stderr returns the stderr captured by a GitError, if any.
func Stderr(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Details != nil {
		if s, ok := appErr.Details["stderr"].(string); ok {
			return s
		}
	}
	return ""
}

// HTTPStatus maps any error to an HTTP status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsMalformed(err):
		return http.StatusUnprocessableEntity
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsBadRequest(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
