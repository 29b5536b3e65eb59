package gateway

import (
	"errors"
	"fmt"
)

// ProtocolError reports a header-level or malformed gateway response. It is
// fatal: no partial state may be committed on its back.
type ProtocolError struct {
	Code    int
	Message string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("gateway: header error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway: protocol error: %s", e.Message)
}

// TransportError reports a network or HTTP-level failure where no usable
// response body exists.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway: %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err is a header/signature-level failure.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTransportError reports whether err is a transport-level failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
