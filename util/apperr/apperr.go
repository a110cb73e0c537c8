package apperr

import "errors"

// Kind separates expected business outcomes from infrastructure failures
// so callers can decide what is retryable without string matching.
type Kind string

const (
	NotFound     Kind = "NOT_FOUND"
	Conflict     Kind = "CONFLICT"
	Forbidden    Kind = "FORBIDDEN"
	InvalidState Kind = "INVALID_STATE"
	Gateway      Kind = "GATEWAY_ERROR"
	Store        Kind = "STORE_ERROR"
)

// Reasons carried alongside a Kind.
const (
	ReasonOutOfStock       = "OUT_OF_STOCK"
	ReasonNoAvailableCar   = "NO_AVAILABLE_CAR"
	ReasonAlreadyReturned  = "ALREADY_RETURNED"
	ReasonExpiredPayment   = "EXPIRED_PAYMENT_OUTSTANDING"
	ReasonAlreadyPaid      = "ALREADY_PAID"
	ReasonNotOwner         = "NOT_OWNER"
	ReasonInvalidDateRange = "INVALID_DATE_RANGE"
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

func Wrap(kind Kind, reason string, err error) error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the Kind, or "" for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf extracts the Reason, or "" for plain errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
