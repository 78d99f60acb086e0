package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by Complete before a credential is set.
var ErrNotConfigured = errors.New("completion client not configured: set an API key first")

// ProviderError wraps a failed call to the model provider. Message is safe to
// show to the user verbatim.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error { return e.Cause }
