package errors

import "net/http"

// Kind is the machine-readable failure class carried by every AppError.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindUpstreamFailure Kind = "UPSTREAM_FAILURE"
	KindInconsistent    Kind = "INCONSISTENT"
)

// HTTPStatus maps a kind to its response status class.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsOperatorVisible reports whether failures of this kind need operator follow-up.
func (k Kind) IsOperatorVisible() bool {
	return k == KindUpstreamFailure || k == KindInconsistent
}
