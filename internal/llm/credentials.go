package llm

import (
	"context"

	"github.com/RichardoC/pad-chat/internal/db"
)

// KeyCredential is the storage key holding the saved API key.
const KeyCredential = "llm_api_key"

// CredentialStore persists the credential between runs.
type CredentialStore interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}

// KVCredentials keeps the credential in a db.KV.
type KVCredentials struct {
	KV db.KV
}

func (c KVCredentials) Load(ctx context.Context) (string, bool, error) {
	return c.KV.Get(ctx, KeyCredential)
}

func (c KVCredentials) Save(ctx context.Context, credential string) error {
	return c.KV.Apply(ctx, db.Put(KeyCredential, credential))
}

func (c KVCredentials) Clear(ctx context.Context) error {
	return c.KV.Apply(ctx, db.Del(KeyCredential))
}
