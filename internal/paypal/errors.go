package paypal

import (
	"errors"
	"fmt"
)

var (
	ErrProviderAuth    = errors.New("paypal auth failed")
	ErrProviderRequest = errors.New("paypal request failed")
)

// RequestError carries the provider's answer for server-side logging. Body and
// DebugID must never be echoed to API clients.
type RequestError struct {
	Op         string
	Kind       error
	StatusCode int
	Body       string
	DebugID    string
	Err        error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.DebugID != "" {
		msg += " debug_id=" + e.DebugID
	}
	if e.Body != "" {
		msg += " body=" + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
