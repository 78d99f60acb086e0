package db

import (
	"context"
	"fmt"
)

// KV is durable key/value storage. Apply must be all or nothing.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Apply(ctx context.Context, ops ...Op) error
	Close() error
}

// Op is a single write inside an Apply batch.
type Op struct {
	Key    string
	Value  string
	Delete bool
}

// Put sets key to value.
func Put(key, value string) Op {
	return Op{Key: key, Value: value}
}

// Del removes key. Removing an absent key is not an error.
func Del(key string) Op {
	return Op{Key: key, Delete: true}
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendGorm   = "gorm"
)

// Open returns the backend identified by name, storing data at path when the
// backend is durable.
func Open(backend, path string) (KV, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		return NewSQLite(path)
	case BackendGorm:
		return NewGorm(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
