package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindNotFound                Kind = "NOT_FOUND"
	KindInsufficientStock       Kind = "INSUFFICIENT_STOCK"
	KindOverpayment             Kind = "OVERPAYMENT"
	KindNoOutstandingBalance    Kind = "NO_OUTSTANDING_BALANCE"
	KindOutstandingBalance      Kind = "OUTSTANDING_BALANCE"
	KindInvalidTransactionShape Kind = "INVALID_TRANSACTION_SHAPE"
	KindMissingRequiredField    Kind = "MISSING_REQUIRED_FIELD"
	KindSequenceConflict        Kind = "SEQUENCE_CONFLICT"
	KindInternal                Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error with a human-readable message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies a lower-level failure. A nil cause returns nil so call sites
// can wrap unconditionally.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal classifies any storage or infrastructure fault not covered by the
// taxonomy. The unit of work guarantees no partial writes either way.
func Internal(err error) *Error {
	return Wrap(err, KindInternal, "internal error")
}

// KindOf extracts the Kind from an error chain, KindInternal if unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind to the status the API surfaces.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInsufficientStock, KindOverpayment, KindNoOutstandingBalance, KindOutstandingBalance:
		return fiber.StatusConflict
	case KindInvalidTransactionShape, KindMissingRequiredField:
		return fiber.StatusBadRequest
	case KindSequenceConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
