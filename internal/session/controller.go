// Package session sequences one chat turn: save the user's message, ask the
// model, save the reply.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/RichardoC/pad-chat/internal/chatstore"
	"github.com/RichardoC/pad-chat/internal/llm"
	"github.com/RichardoC/pad-chat/internal/models"
	"go.uber.org/zap"
)

// ChatStore is the subset of chatstore.Store the controller drives.
type ChatStore interface {
	ListConversations(ctx context.Context) ([]models.Summary, error)
	StartNewConversation(ctx context.Context) error
	AppendMessage(ctx context.Context, msg models.Message) (string, error)
	SelectConversation(ctx context.Context, id string) ([]models.Message, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)
	RenameConversation(ctx context.Context, id, title string) (bool, error)
	ActiveConversation(ctx context.Context) (*models.Conversation, error)
}

// Completer produces model text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// configurable is implemented by completers that can report a missing
// credential before any work is done.
type configurable interface {
	IsConfigured() bool
}

// State is the step a submission is in.
type State string

const (
	StateIdle               State = "IDLE"
	StateValidating         State = "VALIDATING"
	StateAppendingUser      State = "APPENDING_USER"
	StateCallingModel       State = "CALLING_MODEL"
	StateAppendingAssistant State = "APPENDING_ASSISTANT"
	StateFailed             State = "FAILED"
)

// Turn is the outcome of a successful Submit.
type Turn struct {
	ConversationID string           `json:"conversationId"`
	User           models.Message   `json:"user"`
	Assistant      models.Message   `json:"assistant"`
	Conversations  []models.Summary `json:"conversations,omitempty"`
}

// Controller runs turns against one chat store. It owns a single slot:
// while a turn is pending every other mutation is rejected with ErrBusy.
type Controller struct {
	store     ChatStore
	completer Completer
	logger    *zap.Logger

	mu      sync.Mutex
	pending bool
	state   State
}

// NewController returns an idle controller. A nil logger discards output.
func NewController(store ChatStore, completer Completer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:     store,
		completer: completer,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the most recent state. FAILED remains visible until the next
// submission.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports whether a submission, or a store mutation, holds the slot.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// begin claims the single submission slot.
func (c *Controller) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return false
	}
	c.pending = true
	c.state = StateValidating
	return true
}

// acquire claims the slot for a single store mutation outside a turn. The
// state is left alone so a FAILED turn stays visible.
func (c *Controller) acquire(op string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return nil, wrap(op, ErrBusy)
	}
	c.pending = true
	return func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}, nil
}

func (c *Controller) finish(s State) {
	c.mu.Lock()
	c.pending = false
	c.state = s
	c.mu.Unlock()
}

// Submit runs one turn for text. Only one turn may be in flight; a second
// call while one is pending fails with ErrBusy and changes nothing. The user
// message is stored before the model is called, so a provider failure never
// loses the user's input.
func (c *Controller) Submit(ctx context.Context, text string) (*Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, wrap("submit", ErrEmptyInput)
	}
	if !c.begin() {
		return nil, wrap("submit", ErrBusy)
	}

	if cfg, ok := c.completer.(configurable); ok && !cfg.IsConfigured() {
		c.finish(StateIdle)
		return nil, wrap("submit", llm.ErrNotConfigured)
	}

	c.setState(StateAppendingUser)
	userMsg := models.NewMessage(models.RoleUser, text)
	convID, err := c.store.AppendMessage(ctx, userMsg)
	if err != nil {
		return nil, c.fail("append user message", err)
	}

	c.setState(StateCallingModel)
	reply, err := c.completer.Complete(ctx, text)
	if err != nil {
		return nil, c.fail("complete", err, zap.String("conversationId", convID))
	}

	c.setState(StateAppendingAssistant)
	assistantMsg := models.NewMessage(models.RoleAssistant, reply)
	replyID, err := c.store.AppendMessage(ctx, assistantMsg)
	if err != nil {
		return nil, c.fail("append assistant message", err, zap.String("conversationId", convID))
	}
	if replyID != convID {
		return nil, c.fail("append assistant message", &chatstore.StorageError{
			Op:    "append assistant message",
			Cause: errActiveMoved,
		}, zap.String("conversationId", convID), zap.String("storedIn", replyID))
	}

	turn := &Turn{ConversationID: convID, User: userMsg, Assistant: assistantMsg}
	if list, err := c.store.ListConversations(ctx); err != nil {
		c.logger.Warn("failed to refresh conversation list", zap.Error(err))
	} else {
		turn.Conversations = list
	}

	c.finish(StateIdle)
	c.logger.Info("turn completed",
		zap.String("conversationId", convID),
		zap.Int("replyLength", len(reply)))
	return turn, nil
}

func (c *Controller) fail(op string, err error, fields ...zap.Field) error {
	c.finish(StateFailed)
	wrapped := wrap(op, err)
	fields = append(fields, zap.String("kind", string(KindOf(wrapped))), zap.Error(err))
	c.logger.Error("turn failed: "+op, fields...)
	return wrapped
}

// NewConversation makes the next submission start a new conversation.
func (c *Controller) NewConversation(ctx context.Context) error {
	release, err := c.acquire("new conversation")
	if err != nil {
		return err
	}
	defer release()
	return wrap("new conversation", c.store.StartNewConversation(ctx))
}

// List returns the conversation summaries, newest first. It is allowed while
// a turn is pending.
func (c *Controller) List(ctx context.Context) ([]models.Summary, error) {
	list, err := c.store.ListConversations(ctx)
	return list, wrap("list", err)
}

// Select makes id the active conversation and returns its messages.
func (c *Controller) Select(ctx context.Context, id string) ([]models.Message, error) {
	release, err := c.acquire("select")
	if err != nil {
		return nil, err
	}
	defer release()
	msgs, err := c.store.SelectConversation(ctx, id)
	return msgs, wrap("select", err)
}

// Delete removes id, clearing the active pointer if it referenced it.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	release, err := c.acquire("delete")
	if err != nil {
		return false, err
	}
	defer release()
	ok, err := c.store.DeleteConversation(ctx, id)
	return ok, wrap("delete", err)
}

// Rename sets the title of id.
func (c *Controller) Rename(ctx context.Context, id, title string) (bool, error) {
	release, err := c.acquire("rename")
	if err != nil {
		return false, err
	}
	defer release()
	ok, err := c.store.RenameConversation(ctx, id, title)
	return ok, wrap("rename", err)
}

// Resume returns the conversation that was open last, if any.
func (c *Controller) Resume(ctx context.Context) (*models.Conversation, error) {
	conv, err := c.store.ActiveConversation(ctx)
	return conv, wrap("resume", err)
}
