package errors

import (
	"fintrack/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	Kind() Kind        // Failure class
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	kind      Kind
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(kind Kind, errorCode, message string) *BaseError {
	return &BaseError{
		kind:      kind,
		errorCode: errorCode,
		message:   message,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

func (e *BaseError) Kind() Kind {
	return e.kind
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.kind.HTTPStatus()
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails returns a copy carrying details. The copy still matches the
// original with errors.Is.
func (e *BaseError) WithDetails(details string) error {
	return &detailedError{BaseError: &BaseError{
		kind:      e.kind,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}, origin: e}
}

type detailedError struct {
	*BaseError
	origin *BaseError
}

func (e *detailedError) Is(target error) bool {
	return target == e.origin
}

// Predefined error types
var (
	// Validation
	ErrValidationFailed = NewBaseError(KindValidation, "VALIDATION_FAILED", "request validation failed")

	// Authentication. Every token and session failure shares the external code
	// and message so callers cannot tell which check rejected them.
	ErrTokenInvalid = NewBaseError(
		KindUnauthenticated,
		"AUTHENTICATION_FAILED",
		"authentication failed",
	)

	ErrTokenExpired = NewBaseError(
		KindUnauthenticated,
		"AUTHENTICATION_FAILED",
		"authentication failed",
	)

	ErrSessionNotFound = NewBaseError(
		KindUnauthenticated,
		"AUTHENTICATION_FAILED",
		"authentication failed",
	)

	ErrOTPExpired = NewBaseError(KindUnauthenticated, "OTP_EXPIRED", "OTP expired or invalid")
	ErrOTPInvalid = NewBaseError(KindUnauthenticated, "OTP_INVALID", "invalid OTP")

	// Throttling
	ErrOTPRateLimited = NewBaseError(
		KindRateLimited,
		"OTP_RATE_LIMITED",
		"please wait before requesting another OTP",
	)

	ErrRateLimited = NewBaseError(KindRateLimited, "RATE_LIMITED", "too many requests")

	// Identity
	ErrIdentityNotFound = NewBaseError(KindNotFound, "IDENTITY_NOT_FOUND", "identity not found")
	ErrIdentityDisabled = NewBaseError(KindForbidden, "IDENTITY_DISABLED", "account is not active")

	// Sessions
	ErrSessionOwnership = NewBaseError(
		KindForbidden,
		"SESSION_OWNERSHIP_VIOLATION",
		"you do not have permission to access this session",
	)
	ErrSessionUnknown = NewBaseError(KindNotFound, "SESSION_NOT_FOUND", "session not found")

	// Payments
	ErrPlanNotFound            = NewBaseError(KindValidation, "PLAN_NOT_FOUND", "unknown plan")
	ErrCurrencyNotSupported    = NewBaseError(KindValidation, "CURRENCY_NOT_SUPPORTED", "currency not supported for plan")
	ErrPaymentNotFound         = NewBaseError(KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrPaymentOwnership        = NewBaseError(KindForbidden, "PAYMENT_OWNERSHIP_VIOLATION", "payment belongs to another account")
	ErrPaymentAlreadyProcessed = NewBaseError(KindConflict, "PAYMENT_ALREADY_PROCESSED", "payment already processed")
	ErrPaymentSignatureInvalid = NewBaseError(KindValidation, "PAYMENT_SIGNATURE_INVALID", "payment signature mismatch")
	ErrPaymentVerificationFailed = NewBaseError(
		KindValidation,
		"PAYMENT_VERIFICATION_FAILED",
		"payment verification failed",
	)
	ErrPaymentProviderUnavailable = NewBaseError(
		KindUpstreamFailure,
		"PAYMENT_PROVIDER_UNAVAILABLE",
		"payment provider unavailable",
	)
	ErrPaymentInconsistent = NewBaseError(
		KindInconsistent,
		"PAYMENT_INCONSISTENT",
		"payment state could not be recorded",
	)
	ErrWebhookSignatureMissing = NewBaseError(KindValidation, "WEBHOOK_SIGNATURE_MISSING", "missing webhook signature")
	ErrWebhookSignatureInvalid = NewBaseError(KindUnauthenticated, "WEBHOOK_SIGNATURE_INVALID", "invalid webhook signature")
	ErrWebhookPayloadInvalid   = NewBaseError(KindValidation, "WEBHOOK_PAYLOAD_INVALID", "webhook payload could not be parsed")

	// Subscriptions
	ErrSubscriptionNotFound = NewBaseError(KindNotFound, "SUBSCRIPTION_NOT_FOUND", "subscription not found")

	// Infrastructure
	ErrCacheUnavailable = NewBaseError(KindUpstreamFailure, "CACHE_UNAVAILABLE", "cache unavailable")
	ErrUpstreamTimeout  = NewBaseError(KindUpstreamFailure, "UPSTREAM_TIMEOUT", "upstream did not respond in time")
	ErrTransactionFailed = NewBaseError(
		KindUpstreamFailure,
		"TRANSACTION_FAILED",
		"database transaction failed",
	)

	// General errors
	ErrInternalError = NewBaseError(KindInconsistent, "INTERNAL_ERROR", "internal server error")
	ErrForbidden     = NewBaseError(KindForbidden, "FORBIDDEN", "access denied")
	ErrNotFound      = NewBaseError(KindNotFound, "NOT_FOUND", "resource not found")
	ErrConflict      = NewBaseError(KindConflict, "CONFLICT", "resource conflict")
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the driver error so context deadlines stay detectable.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

func (e *DatabaseExecuteError) Kind() Kind {
	return KindUpstreamFailure
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return e.Kind().HTTPStatus()
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}

// KindOf returns the kind of the first AppError in err's tree.
// Errors outside the taxonomy are Inconsistent.
func KindOf(err error) Kind {
	if appErr, ok := errors.AsType[AppError](err); ok {
		return appErr.Kind()
	}

	return KindInconsistent
}
