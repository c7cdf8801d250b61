// Package apperr defines the typed errors returned by the estimate workflow.
// Services return *Error values and the HTTP layer maps Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a workflow error.
type Kind string

const (
	KindInternal               Kind = "internal"
	KindNotFound               Kind = "not_found"
	KindValidation             Kind = "validation"
	KindInvalidTransition      Kind = "invalid_transition"
	KindMissingCapability      Kind = "missing_capability"
	KindNotEditable            Kind = "not_editable"
	KindNotConvertible         Kind = "not_convertible"
	KindNoLineItems            Kind = "no_line_items"
	KindVehicleHasActiveJob    Kind = "vehicle_has_active_job"
	KindInvalidConversionInput Kind = "invalid_conversion_input"
	KindOwnershipMismatch      Kind = "ownership_mismatch"
	// KindIntegrity marks stored data that contradicts itself, e.g. two jobs
	// claiming the same estimate.
	KindIntegrity Kind = "integrity"
)

type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the API responds with for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidConversionInput:
		return http.StatusBadRequest
	case KindMissingCapability:
		return http.StatusForbidden
	case KindInvalidTransition, KindNotEditable, KindNotConvertible, KindVehicleHasActiveJob:
		return http.StatusConflict
	case KindNoLineItems, KindOwnershipMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// FieldErrors maps an input field name to what is wrong with it.
type FieldErrors map[string]string

// BlockingJob names the open job that prevents a conversion.
type BlockingJob struct {
	Number string `json:"number"`
	Status string `json:"status"`
}

// GetKind returns the Kind of the first *Error in err's chain, or "" if there is none.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Ensure wraps err as KindInternal unless it already carries a Kind.
func Ensure(err error, op string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	return Wrap(KindInternal, "unexpected failure", err).WithOp(op)
}
