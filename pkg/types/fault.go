package types

import "net/http"

// FaultClass buckets user-facing failures. Every class is recoverable by the
// caller (retry, different URL or format); server-side faults use
// FaultGeneric.
type FaultClass string

const (
	FaultAccessDenied       FaultClass = "access_denied"
	FaultLegallyUnavailable FaultClass = "legally_unavailable"
	FaultNotFound           FaultClass = "not_found"
	FaultBadInput           FaultClass = "bad_input"
	FaultTransient          FaultClass = "transient"
	FaultGeneric            FaultClass = "generic"
)

// HTTPStatus maps a fault class to its transport status code.
func (c FaultClass) HTTPStatus() int {
	switch c {
	case FaultAccessDenied:
		return http.StatusForbidden
	case FaultLegallyUnavailable:
		return http.StatusUnavailableForLegalReasons
	case FaultNotFound:
		return http.StatusNotFound
	case FaultBadInput:
		return http.StatusBadRequest
	case FaultTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Fault carries a classified, user-facing failure. The Message is always a
// fixed template; raw subprocess output is logged server-side only.
type Fault struct {
	Class   FaultClass
	Message string
}

func (f *Fault) Error() string {
	return f.Message
}

// NewFault creates a classified fault.
func NewFault(class FaultClass, message string) *Fault {
	return &Fault{Class: class, Message: message}
}
