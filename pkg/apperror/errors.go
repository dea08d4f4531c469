package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string      `json:"error_code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Err        error       `json:"-"`                 // Wrapped internal error (not exposed to client)
	Details    interface{} `json:"details,omitempty"` // Diagnostic payload safe to expose
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Describe returns the message with the wrapped cause, without the code prefix.
// Used for per-transaction lines in a run report.
func (e *AppError) Describe() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails attaches a client-visible diagnostic payload.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// UpstreamDetails is the diagnostic payload attached to upstream feed errors.
type UpstreamDetails struct {
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

// ---- Configuration (CFG) ----

func ErrFeedTokenMissing() *AppError {
	return New("CFG_001", "Feed access token not configured", http.StatusInternalServerError)
}

func ErrSettingsUnavailable(err error) *AppError {
	return Wrap("CFG_002", "Reconciliation settings unavailable", http.StatusInternalServerError, err)
}

// ---- Upstream feed (UPS) ----

// ErrUpstreamFetch covers network failures and non-2xx HTTP responses.
func ErrUpstreamFetch(statusCode int, body string, err error) *AppError {
	return Wrap("UPS_001", "Failed to fetch bank data", http.StatusBadGateway, err).
		WithDetails(UpstreamDetails{StatusCode: statusCode, Body: body})
}

// ErrUpstreamRejected is returned when the feed answers with a non-success status code.
func ErrUpstreamRejected(code string, body string) *AppError {
	return New("UPS_002", fmt.Sprintf("Bank feed returned status code %q", code), http.StatusBadGateway).
		WithDetails(UpstreamDetails{StatusCode: http.StatusOK, Body: body})
}

// ErrUpstreamMalformed is returned when the feed payload does not match the expected schema.
func ErrUpstreamMalformed(body string, err error) *AppError {
	return Wrap("UPS_003", "Malformed bank feed payload", http.StatusBadGateway, err).
		WithDetails(UpstreamDetails{StatusCode: http.StatusOK, Body: body})
}

// ---- Reconciliation, per transaction (REC) ----

func ErrAccountNotFound(username string) *AppError {
	return New("REC_001", fmt.Sprintf("User not found: %s", username), http.StatusNotFound)
}

func ErrCreditFailed(username string, err error) *AppError {
	return Wrap("REC_002", fmt.Sprintf("Failed to update balance for %s", username), http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

// ErrBodyTooLarge rejects request bodies over the configured limit.
func ErrBodyTooLarge() *AppError {
	return New("REQ_002", "Request body too large", http.StatusRequestEntityTooLarge)
}
