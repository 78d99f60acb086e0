package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/RichardoC/pad-chat/internal/app"
	"github.com/RichardoC/pad-chat/internal/config"
	"github.com/RichardoC/pad-chat/internal/logging"
	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/session"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("245")).Padding(0, 2)
)

const help = `Commands:
  /new                 start a new conversation
  /list                list saved conversations
  /open <id>           open a conversation
  /delete <id>         delete a conversation
  /rename <id> <title> rename a conversation
  /key <api key>       set the API key
  /reset-key           forget the API key
  /help                show this help
  /quit                exit
Anything else is sent to the model.`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	// Keep the terminal clean: only warnings and errors, as JSON on stderr.
	logger, err := logging.New("warn", false)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	r := &repl{ctrl: a.Controller, creds: a.Client, out: os.Stdout}
	r.run(ctx, os.Stdin)
}

type credentials interface {
	Configure(ctx context.Context, credential string) bool
	Reset(ctx context.Context) error
	IsConfigured() bool
}

type repl struct {
	ctrl  *session.Controller
	creds credentials
	out   io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) {
	fmt.Fprintln(r.out, titleStyle.Render("pad-chat"))
	if !r.creds.IsConfigured() {
		r.info("No API key set. Use /key <api key>.")
	}
	r.resume(ctx)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, userStyle.Render("> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !r.command(ctx, line) {
				return
			}
			continue
		}
		r.submit(ctx, line)
	}
}

func (r *repl) resume(ctx context.Context) {
	conv, err := r.ctrl.Resume(ctx)
	if err != nil {
		r.fail(err)
		return
	}
	if conv == nil {
		r.info("Try asking about:")
		for _, s := range session.Suggestions() {
			r.info("  " + s)
		}
		return
	}
	r.info("Resuming: " + conv.Title)
	r.print(conv.Messages)
}

// command handles a slash command and reports whether to keep running.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/quit", "/exit":
		return false
	case "/help":
		r.info(help)
	case "/new":
		if err := r.ctrl.NewConversation(ctx); err != nil {
			r.fail(err)
			return true
		}
		r.info("Started a new conversation")
	case "/list":
		list, err := r.ctrl.List(ctx)
		if err != nil {
			r.fail(err)
			return true
		}
		if len(list) == 0 {
			r.info("No saved conversations")
		}
		for _, c := range list {
			fmt.Fprintf(r.out, "%s  %s  %s\n", infoStyle.Render(c.ID), c.Title, infoStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")))
		}
	case "/open":
		msgs, err := r.ctrl.Select(ctx, arg)
		if err != nil {
			r.fail(err)
			return true
		}
		r.print(msgs)
	case "/delete":
		ok, err := r.ctrl.Delete(ctx, arg)
		switch {
		case err != nil:
			r.fail(err)
		case !ok:
			r.info("No such conversation")
		default:
			r.info("Deleted")
		}
	case "/rename":
		if len(fields) < 3 {
			r.info("usage: /rename <id> <title>")
			return true
		}
		title := strings.TrimSpace(strings.TrimPrefix(arg, fields[1]))
		ok, err := r.ctrl.Rename(ctx, fields[1], title)
		switch {
		case err != nil:
			r.fail(err)
		case !ok:
			r.info("No such conversation")
		default:
			r.info("Renamed")
		}
	case "/key":
		if r.creds.Configure(ctx, arg) {
			r.info("API key saved")
		} else {
			r.info("API key rejected")
		}
	case "/reset-key":
		if err := r.creds.Reset(ctx); err != nil {
			r.fail(err)
			return true
		}
		r.info("API key removed")
	default:
		r.info("Unknown command. Type /help.")
	}
	return true
}

func (r *repl) submit(ctx context.Context, text string) {
	r.info("...")
	turn, err := r.ctrl.Submit(ctx, text)
	if err != nil {
		r.fail(err)
		return
	}
	r.print([]models.Message{turn.Assistant})
}

func (r *repl) print(msgs []models.Message) {
	for _, m := range msgs {
		label := userStyle.Render("you")
		if m.Role == models.RoleAssistant {
			label = assistantStyle.Render("assistant")
		}
		fmt.Fprintf(r.out, "%s: %s\n", label, m.Content)
	}
}

func (r *repl) info(msg string) {
	fmt.Fprintln(r.out, infoStyle.Render(msg))
}

func (r *repl) fail(err error) {
	switch session.KindOf(err) {
	case session.KindNotConfigured:
		r.info("Set your API key first with /key <api key>.")
	case session.KindValidation:
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
	default:
		fmt.Fprintln(r.out, errorStyle.Render("Error: "+err.Error()))
	}
}
