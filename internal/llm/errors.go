package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrTimeout means the provider call exceeded its deadline.
	ErrTimeout = errors.New("completion timed out")

	// ErrEmptyCompletion means the provider answered without usable text.
	ErrEmptyCompletion = errors.New("completion returned no text")

	// ErrNoMessages is returned when Complete is called with an empty transcript.
	ErrNoMessages = errors.New("completion requires at least one message")
)

// UpstreamError is returned when the provider answers with a non-success status.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream error (%d): %s", e.Provider, e.Status, e.Body)
}

// TransportError covers every other failure reaching the provider: network,
// request encoding, response decoding.
type TransportError struct {
	Provider string
	Message  string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// timeoutError wraps ErrTimeout with the provider name.
func timeoutError(provider string) error {
	return fmt.Errorf("%s: %w", provider, ErrTimeout)
}

// transportFailure classifies an error from the HTTP/SDK layer. Deadline and
// network timeouts become ErrTimeout; anything else is a TransportError.
func transportFailure(provider, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(provider)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return timeoutError(provider)
	}
	redactURL(err)
	return &TransportError{Provider: provider, Message: op + ": " + err.Error(), Err: err}
}

// redactURL strips the query string from a *url.Error so credentials passed
// as parameters never reach logs or the journal.
func redactURL(err error) {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return
	}
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		u.User = nil
		ue.URL = u.String()
		return
	}
	ue.URL = "<redacted>"
}

// Failure kinds reported by Kind.
const (
	KindTimeout         = "timeout"
	KindUpstream        = "upstream_error"
	KindEmptyCompletion = "empty_completion"
	KindTransport       = "transport_error"
)

// Kind names the provider failure class of err, or returns "" when err is
// not a provider failure.
func Kind(err error) string {
	var (
		upstream  *UpstreamError
		transport *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.Is(err, ErrEmptyCompletion):
		return KindEmptyCompletion
	case errors.As(err, &transport):
		return KindTransport
	default:
		return ""
	}
}
