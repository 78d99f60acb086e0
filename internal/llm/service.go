// Package llm wraps the external language model behind a single
// prompt-to-text call.
package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client turns a prompt into model text using the configured credential. A
// failed call is returned as is; Client never retries.
type Client struct {
	mu       sync.RWMutex
	factory  ProviderFactory
	provider Provider
	name     string
	creds    CredentialStore
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCredentialStore sets where the credential is saved and restored from.
func WithCredentialStore(cs CredentialStore) Option {
	return func(c *Client) { c.creds = cs }
}

// WithTimeout bounds each Complete call. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProviderName sets the name reported in ProviderError.
func WithProviderName(name string) Option {
	return func(c *Client) { c.name = name }
}

// New returns an unconfigured Client that builds providers with factory.
func New(factory ProviderFactory, opts ...Option) *Client {
	c := &Client{
		factory: factory,
		name:    ProviderLangChain,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure validates and stores credential. It does not contact the
// provider; a bad key surfaces on the first Complete.
func (c *Client) Configure(ctx context.Context, credential string) bool {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return false
	}
	provider, err := c.factory(credential)
	if err != nil {
		c.logger.Error("failed to initialize provider", zap.String("provider", c.name), zap.Error(err))
		return false
	}
	if c.creds != nil {
		if err := c.creds.Save(ctx, credential); err != nil {
			c.logger.Error("failed to save credential", zap.Error(err))
			return false
		}
	}

	c.mu.Lock()
	c.provider = provider
	c.mu.Unlock()
	c.logger.Info("completion client configured", zap.String("provider", c.name))
	return true
}

// Restore configures the client from a previously saved credential. It
// reports whether one was found and accepted.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	if c.creds == nil {
		return false, nil
	}
	credential, ok, err := c.creds.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	return c.Configure(ctx, credential), nil
}

// Reset forgets the credential, in memory and in storage.
func (c *Client) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.provider = nil
	c.mu.Unlock()
	if c.creds != nil {
		return c.creds.Clear(ctx)
	}
	return nil
}

func (c *Client) IsConfigured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider != nil
}

// Complete sends prompt to the provider.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	provider := c.provider
	c.mu.RUnlock()
	if provider == nil {
		return "", ErrNotConfigured
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := provider.Generate(ctx, prompt)
	if err != nil {
		c.logger.Error("completion failed",
			zap.String("provider", c.name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", &ProviderError{Provider: c.name, Message: err.Error(), Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		c.logger.Error("empty completion", zap.String("provider", c.name))
		return "", &ProviderError{Provider: c.name, Message: "empty response from model"}
	}

	c.logger.Debug("completion received",
		zap.String("provider", c.name),
		zap.Int("promptLength", len(prompt)),
		zap.Int("responseLength", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}
