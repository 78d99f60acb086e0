package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/RichardoC/pad-chat/internal/chatstore"
	"github.com/RichardoC/pad-chat/internal/db"
	"github.com/RichardoC/pad-chat/internal/llm"
	"github.com/RichardoC/pad-chat/internal/session"
)

type echoProvider struct{}

func (echoProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "echo: " + prompt, nil
}

func newREPL(t *testing.T) (*repl, *bytes.Buffer, *chatstore.Store) {
	t.Helper()
	store := chatstore.New(db.NewMemory())
	client := llm.New(func(string) (llm.Provider, error) { return echoProvider{}, nil })
	out := &bytes.Buffer{}
	return &repl{ctrl: session.NewController(store, client, nil), creds: client, out: out}, out, store
}

func TestREPLConversation(t *testing.T) {
	r, out, store := newREPL(t)
	input := strings.Join([]string{
		"hello before key",
		"/key secret",
		"hello",
		"/list",
		"/new",
		"/quit",
		"never sent",
	}, "\n")

	r.run(context.Background(), strings.NewReader(input))

	text := out.String()
	for _, want := range []string{"Set your API key first", "API key saved", "echo: hello", "Started a new conversation"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "never sent") {
		t.Error("input after /quit was processed")
	}

	list, _ := store.ListConversations(context.Background())
	if len(list) != 1 || list[0].Title != "hello" {
		t.Errorf("list = %+v", list)
	}
}

func TestREPLOpenDeleteRename(t *testing.T) {
	ctx := context.Background()
	r, out, store := newREPL(t)
	r.creds.Configure(ctx, "secret")
	r.submit(ctx, "first question")
	list, _ := store.ListConversations(ctx)
	id := list[0].ID

	r.command(ctx, "/rename "+id+" My chat")
	r.command(ctx, "/open "+id)
	r.command(ctx, "/open missing")
	r.command(ctx, "/delete "+id)
	r.command(ctx, "/delete "+id)

	text := out.String()
	for _, want := range []string{"Renamed", "echo: first question", "conversation not found", "Deleted", "No such conversation"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
