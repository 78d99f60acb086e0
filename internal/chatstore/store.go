// Package chatstore owns the persisted conversations and the active
// conversation pointer.
package chatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/models"
	"go.uber.org/zap"
)

// Storage keys.
const (
	KeyHistory  = "chat_history"
	KeyActiveID = "current_chat_id"
)

// Store is the persisted list of conversations plus the active pointer.
// Its operations are serialized and each one commits in a single write.
type Store struct {
	mu       sync.Mutex
	kv       db.KV
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	titleLen int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for storage failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the source of CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator for conversation ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithTitleLength sets how many characters of the first message become
// the title.
func WithTitleLength(n int) Option {
	return func(s *Store) { s.titleLen = n }
}

// New returns a Store persisting to kv.
func New(kv db.KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    models.NewID,
		titleLen: models.DefaultTitleLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshot is the persisted state as read at the start of an operation.
// conversations is in insertion order.
type snapshot struct {
	conversations []models.Conversation
	activeID      string
}

func (s *snapshot) index(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// resolvedActive returns the active id only if it names a stored record.
func (s *snapshot) resolvedActive() string {
	if s.activeID == "" || s.index(s.activeID) < 0 {
		return ""
	}
	return s.activeID
}

func (s *Store) load(ctx context.Context, op string) (*snapshot, error) {
	raw, ok, err := s.kv.Get(ctx, KeyHistory)
	if err != nil {
		return nil, s.storageError(op, fmt.Errorf("read %s: %w", KeyHistory, err))
	}
	snap := &snapshot{}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &snap.conversations); err != nil {
			return nil, s.storageError(op, fmt.Errorf("decode %s: %w", KeyHistory, err))
		}
	}
	active, _, err := s.kv.Get(ctx, KeyActiveID)
	if err != nil {
		return nil, s.storageError(op, fmt.Errorf("read %s: %w", KeyActiveID, err))
	}
	snap.activeID = active
	return snap, nil
}

// commit writes history and the active pointer in one batch.
func (s *Store) commit(ctx context.Context, op string, snap *snapshot) error {
	if snap.conversations == nil {
		snap.conversations = []models.Conversation{}
	}
	data, err := json.Marshal(snap.conversations)
	if err != nil {
		return s.storageError(op, fmt.Errorf("encode %s: %w", KeyHistory, err))
	}
	active := db.Del(KeyActiveID)
	if snap.activeID != "" {
		active = db.Put(KeyActiveID, snap.activeID)
	}
	if err := s.kv.Apply(ctx, db.Put(KeyHistory, string(data)), active); err != nil {
		return s.storageError(op, err)
	}
	return nil
}

func (s *Store) storageError(op string, cause error) error {
	s.logger.Error("chat storage failure", zap.String("op", op), zap.Error(cause))
	return &StorageError{Op: op, Cause: cause}
}

// ListConversations returns every conversation, newest first. Records created
// at the same instant keep reverse insertion order.
func (s *Store) ListConversations(ctx context.Context) ([]models.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "list")
	if err != nil {
		return nil, err
	}
	out := make([]models.Summary, 0, len(snap.conversations))
	for i := len(snap.conversations) - 1; i >= 0; i-- {
		out = append(out, snap.conversations[i].Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// StartNewConversation clears the active pointer so the next appended message
// opens a new record. No record is created here.
func (s *Store) StartNewConversation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Apply(ctx, db.Del(KeyActiveID)); err != nil {
		return s.storageError("start", err)
	}
	s.logger.Debug("active conversation cleared")
	return nil
}

// AppendMessage adds msg to the active conversation, creating and activating a
// new one when there is no active conversation or the pointer is stale. It
// returns the id of the conversation that received the message.
func (s *Store) AppendMessage(ctx context.Context, msg models.Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "append")
	if err != nil {
		return "", err
	}

	if s.activeStale(snap) {
		s.logger.Warn("active conversation missing, starting a new one",
			zap.String("activeId", snap.activeID))
	}

	var convID string
	if idx := snap.index(snap.resolvedActive()); idx >= 0 {
		conv := snap.conversations[idx].Clone()
		conv.Messages = append(conv.Messages, msg)
		snap.conversations[idx] = conv
		convID = conv.ID
	} else {
		conv := models.Conversation{
			ID:        s.newID(),
			Title:     models.DeriveTitle(msg.Content, s.titleLen),
			Messages:  []models.Message{msg},
			CreatedAt: s.now(),
		}
		snap.conversations = append(snap.conversations, conv)
		convID = conv.ID
	}
	snap.activeID = convID

	if err := s.commit(ctx, "append", snap); err != nil {
		return "", err
	}

	s.logger.Debug("message appended",
		zap.String("conversationId", convID),
		zap.String("messageId", msg.ID),
		zap.String("role", string(msg.Role)))
	return convID, nil
}

func (s *Store) activeStale(snap *snapshot) bool {
	return snap.activeID != "" && snap.resolvedActive() == ""
}

// SelectConversation makes id the active conversation and returns a copy of
// its messages. When id is unknown it returns ErrConversationNotFound and the
// active pointer is left alone.
func (s *Store) SelectConversation(ctx context.Context, id string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "select")
	if err != nil {
		return nil, err
	}
	idx := snap.index(id)
	if idx < 0 {
		return nil, ErrConversationNotFound
	}
	if snap.activeID != id {
		if err := s.kv.Apply(ctx, db.Put(KeyActiveID, id)); err != nil {
			return nil, s.storageError("select", err)
		}
	}
	return snap.conversations[idx].Clone().Messages, nil
}

// DeleteConversation removes id, clearing the active pointer in the same write
// when it pointed at id. It reports false when id was not stored.
func (s *Store) DeleteConversation(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "delete")
	if err != nil {
		return false, err
	}
	idx := snap.index(id)
	if idx < 0 {
		return false, nil
	}
	snap.conversations = append(snap.conversations[:idx:idx], snap.conversations[idx+1:]...)
	if snap.activeID == id {
		snap.activeID = ""
	}
	if err := s.commit(ctx, "delete", snap); err != nil {
		return false, err
	}
	s.logger.Info("conversation deleted", zap.String("conversationId", id))
	return true, nil
}

// RenameConversation replaces the title of id. Titles are otherwise fixed at
// creation.
func (s *Store) RenameConversation(ctx context.Context, id, title string) (bool, error) {
	if title == "" {
		return false, fmt.Errorf("%w: empty title", ErrInvalidMessage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "rename")
	if err != nil {
		return false, err
	}
	idx := snap.index(id)
	if idx < 0 {
		return false, nil
	}
	snap.conversations[idx].Title = title
	if err := s.commit(ctx, "rename", snap); err != nil {
		return false, err
	}
	return true, nil
}

// Conversation returns a copy of one record without changing the selection.
func (s *Store) Conversation(ctx context.Context, id string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "get")
	if err != nil {
		return models.Conversation{}, err
	}
	idx := snap.index(id)
	if idx < 0 {
		return models.Conversation{}, ErrConversationNotFound
	}
	return snap.conversations[idx].Clone(), nil
}

// ActiveID returns the active conversation id when it resolves.
func (s *Store) ActiveID(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "active")
	if err != nil {
		return "", false, err
	}
	id := snap.resolvedActive()
	return id, id != "", nil
}

// ActiveConversation returns the conversation to resume after a reload, or
// nil when there is none.
func (s *Store) ActiveConversation(ctx context.Context) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx, "resume")
	if err != nil {
		return nil, err
	}
	idx := snap.index(snap.resolvedActive())
	if idx < 0 {
		return nil, nil
	}
	conv := snap.conversations[idx].Clone()
	return &conv, nil
}

func validateMessage(msg models.Message) error {
	switch {
	case msg.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	case !msg.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, msg.Role)
	case msg.Role == models.RoleUser && msg.Content == "":
		return fmt.Errorf("%w: empty user message", ErrInvalidMessage)
	}
	return nil
}
