package ollama

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation call.
type ErrorKind string

const (
	// KindUnreachable means the request never got a response: connection
	// refused, DNS failure, timeout or a cancelled context.
	KindUnreachable ErrorKind = "unreachable"

	// KindUnreadable means the response body could not be read to the end.
	KindUnreadable ErrorKind = "unreadable"

	// KindProvider means Ollama answered with a non-2xx status.
	KindProvider ErrorKind = "provider"
)

// Error is returned by Client for every failed call.
// Message is safe to show to the caller as-is.
type Error struct {
	Kind       ErrorKind
	StatusCode int // 0 unless Kind == KindProvider
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("ollama %s: %v", e.Kind, e.Cause)
	}
	return "ollama " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts *Error from err.
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	oe, ok := AsError(err)
	return ok && oe.Kind == kind
}

func unreachable(cause error) *Error {
	return &Error{
		Kind: KindUnreachable,
		Message: fmt.Sprintf("Failed to connect to Ollama: %v. Make sure Ollama is running with 'ollama serve'",
			cause),
		Cause: cause,
	}
}

func unreadable(cause error) *Error {
	return &Error{
		Kind:    KindUnreadable,
		Message: fmt.Sprintf("Failed to get response text: %v", cause),
		Cause:   cause,
	}
}

func providerStatus(code int, detail string) *Error {
	return &Error{
		Kind:       KindProvider,
		StatusCode: code,
		Message:    fmt.Sprintf("ollama %d: %s", code, detail),
	}
}
