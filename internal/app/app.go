// Package app assembles storage, the completion client and the session
// controller from configuration.
package app

import (
	"context"
	"sync"

	"github.com/RichardoC/pad-chat/internal/auth"
	"github.com/RichardoC/pad-chat/internal/chatstore"
	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/llm"
	"github.com/RichardoC/pad-chat/internal/session"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Session is the chat state owned by one user: their conversations, active
// pointer, saved credential and the controller that runs their turns.
type Session struct {
	UserID     string
	Store      *chatstore.Store
	Client     *llm.Client
	Controller *session.Controller
}

// App holds the shared storage and one Session per user. Store, Client and
// Controller belong to the local user.
type App struct {
	KV         db.KV
	Store      *chatstore.Store
	Client     *llm.Client
	Controller *session.Controller

	cfg     *config.Config
	factory llm.ProviderFactory
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// New opens storage and restores the local user's saved credential.
// cfg.LLMAPIKey, when set, takes precedence over the saved one.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	factory, err := llm.NewFactory(cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}
	return NewWithFactory(ctx, cfg, factory, logger)
}

// NewWithFactory is New with an explicit provider factory.
func NewWithFactory(ctx context.Context, cfg *config.Config, factory llm.ProviderFactory, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kv, err := db.Open(cfg.StorageBackend, cfg.StoragePath)
	if err != nil {
		return nil, err
	}

	a := &App{
		KV:       kv,
		cfg:      cfg,
		factory:  factory,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
	local, err := a.Session(ctx, auth.LocalUserID)
	if err != nil {
		return nil, multierr.Append(err, kv.Close())
	}
	a.Store = local.Store
	a.Client = local.Client
	a.Controller = local.Controller
	return a, nil
}

// Session returns the state of userID, building it on first use. The local
// user keeps the unscoped keys; every other user's keys live under
// KeyPrefix(userID).
func (a *App) Session(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		userID = auth.LocalUserID
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[userID]; ok {
		return s, nil
	}

	logger := a.logger.With(zap.String("user", userID))
	kv := db.WithPrefix(a.KV, KeyPrefix(userID))

	client := llm.New(a.factory,
		llm.WithCredentialStore(llm.KVCredentials{KV: kv}),
		llm.WithTimeout(a.cfg.LLMTimeout),
		llm.WithProviderName(a.cfg.LLMProvider),
		llm.WithLogger(logger.Named("llm")),
	)
	if a.cfg.LLMAPIKey != "" {
		if !client.Configure(ctx, a.cfg.LLMAPIKey) {
			logger.Warn("LLM_API_KEY was rejected")
		}
	} else if ok, err := client.Restore(ctx); err != nil {
		logger.Warn("failed to restore saved credential", zap.Error(err))
	} else if ok {
		logger.Info("restored saved credential")
	}

	store := chatstore.New(kv,
		chatstore.WithLogger(logger.Named("chatstore")),
		chatstore.WithTitleLength(a.cfg.TitleLength),
	)
	s := &Session{
		UserID:     userID,
		Store:      store,
		Client:     client,
		Controller: session.NewController(store, client, logger.Named("session")),
	}
	a.sessions[userID] = s
	return s, nil
}

// KeyPrefix is the storage prefix for userID's keys. The local user has none.
func KeyPrefix(userID string) string {
	if userID == "" || userID == auth.LocalUserID {
		return ""
	}
	return "user:" + userID + "/"
}

// Close releases the shared storage.
func (a *App) Close() error {
	return a.KV.Close()
}
