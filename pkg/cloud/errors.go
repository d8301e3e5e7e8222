package cloud

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrInternal marks engine faults: undecodable documents and broken invariants.
	ErrInternal = errors.New("internal error")

	// ErrAmbiguousResult is returned when a lookup by id yields more than one entity.
	// It also matches ErrInternal.
	ErrAmbiguousResult = fmt.Errorf("%w: ambiguous result", ErrInternal)
)

// CodeRequestError is the code used when the request never produced a provider response.
const CodeRequestError = "RequestError"

// CloudError is a fault reported by, or on the way to, the provider.
type CloudError struct {
	Service    string
	Action     string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Err        error
}

var _ smithy.APIError = (*CloudError)(nil)

func (e *CloudError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Service, e.Action, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d", e.StatusCode)
		if e.RequestID != "" {
			msg += ", request id " + e.RequestID
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CloudError) Unwrap() error { return e.Err }

func (e *CloudError) ErrorCode() string { return e.Code }

func (e *CloudError) ErrorMessage() string { return e.Message }

// ErrorFault attributes 5xx responses and transport failures to the server side.
func (e *CloudError) ErrorFault() smithy.ErrorFault {
	switch {
	case e.Code == CodeRequestError, e.StatusCode >= 500:
		return smithy.FaultServer
	case e.StatusCode >= 400:
		return smithy.FaultClient
	default:
		return smithy.FaultUnknown
	}
}

// ErrorCodeOf returns the provider code carried by err, or "" when err is not a provider fault.
func ErrorCodeOf(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
