package db

import "context"

// Prefixed scopes every key of an underlying KV under a fixed prefix, so
// several owners can share one database without seeing each other's keys.
type Prefixed struct {
	kv     KV
	prefix string
}

// WithPrefix returns kv scoped to prefix. An empty prefix returns kv itself.
func WithPrefix(kv KV, prefix string) KV {
	if prefix == "" {
		return kv
	}
	return &Prefixed{kv: kv, prefix: prefix}
}

func (p *Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.kv.Get(ctx, p.prefix+key)
}

func (p *Prefixed) Apply(ctx context.Context, ops ...Op) error {
	scoped := make([]Op, len(ops))
	for i, op := range ops {
		op.Key = p.prefix + op.Key
		scoped[i] = op
	}
	return p.kv.Apply(ctx, scoped...)
}

// Close is a no-op. The underlying KV is closed by its owner.
func (p *Prefixed) Close() error { return nil }
