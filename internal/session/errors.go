package session

import (
	"errors"
	"fmt"

	"github.com/RichardoC/pad-chat/internal/chatstore"
	"github.com/RichardoC/pad-chat/internal/llm"
)

// Kind is the stable classification handed to callers.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotConfigured Kind = "NOT_CONFIGURED"
	KindProvider      Kind = "PROVIDER"
	KindStorage       Kind = "STORAGE"
	KindUnknown       Kind = "UNKNOWN"
)

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a message is already being answered")

	errActiveMoved = errors.New("active conversation changed during the turn")
)

// Error is returned by every Controller operation that fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. It returns "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	var storageErr *chatstore.StorageError
	var providerErr *llm.ProviderError
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrBusy),
		errors.Is(err, chatstore.ErrInvalidMessage), errors.Is(err, chatstore.ErrConversationNotFound):
		return KindValidation
	case errors.Is(err, llm.ErrNotConfigured):
		return KindNotConfigured
	case errors.As(err, &providerErr):
		return KindProvider
	case errors.As(err, &storageErr):
		return KindStorage
	default:
		return KindUnknown
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}
