package lifecycle

import (
	"errors"
	"net/http"

	"github.com/soyeahso/ai4cs/internal/llm"
	"github.com/soyeahso/ai4cs/internal/session"
)

// Error codes exposed to callers.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeSessionNotFound = "session_not_found"
	CodeTimeout         = "timeout"
	CodeUpstream        = "upstream_error"
	CodeEmptyCompletion = "empty_completion"
	CodeTransport       = "transport_error"
	CodeInternal        = "internal_error"
)

// SessionNotFoundMessage is shown when a session id is unknown or expired.
const SessionNotFoundMessage = "Session expired or invalid. Please restart the consultation."

// Error is the caller-facing failure of a lifecycle operation. Err keeps the
// underlying cause for logging and is never serialized.
type Error struct {
	Code    string         `json:"code"`
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func invalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Status: http.StatusBadRequest, Message: msg}
}

// Classify maps any error from the engine onto the caller-facing taxonomy.
// A nil error yields nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var le *Error
	if errors.As(err, &le) {
		return le
	}

	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return &Error{Code: CodeSessionNotFound, Status: http.StatusNotFound, Message: SessionNotFoundMessage, Err: err}
	case errors.Is(err, llm.ErrTimeout):
		return &Error{Code: CodeTimeout, Status: http.StatusGatewayTimeout, Message: "The AI provider did not respond in time. Please try again.", Err: err}
	case errors.As(err, &upstream):
		return &Error{
			Code:    CodeUpstream,
			Status:  http.StatusBadGateway,
			Message: "The AI provider returned an error.",
			Details: map[string]any{"status": upstream.Status, "body": upstream.Body},
			Err:     err,
		}
	case errors.Is(err, llm.ErrEmptyCompletion):
		return &Error{Code: CodeEmptyCompletion, Status: http.StatusBadGateway, Message: "The AI provider returned an empty response.", Err: err}
	case llm.Kind(err) == llm.KindTransport:
		return &Error{Code: CodeTransport, Status: http.StatusBadGateway, Message: "Could not reach the AI provider.", Err: err}
	default:
		return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "Internal server error.", Err: err}
	}
}
