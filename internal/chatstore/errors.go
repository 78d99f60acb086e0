package chatstore

import (
	"errors"
	"fmt"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidMessage       = errors.New("invalid message")
)

// StorageError reports a failed read or write of persisted chat state. The
// operation that returned it was not applied.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("chat storage error in %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }
