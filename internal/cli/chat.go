// Package cli runs a conversation in the terminal: buttons are numbered and chosen by
// typing their number, files are sent with slash commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/internal/presentation/tui"
	"github.com/aretw0/splitbill/pkg/domain"
)

// Engine is the part of the session core the chat drives.
type Engine interface {
	Handle(ctx context.Context, actorID string, ev domain.Event) (domain.Reply, error)
	Start(ctx context.Context, actorID string) (domain.Reply, error)
}

// Chat is a line-oriented terminal client for one actor.
type Chat struct {
	Engine  Engine
	ActorID string
	In      io.Reader
	Out     io.Writer
	// OutDir receives artifacts; empty means the working directory.
	OutDir string
	// Render formats message text; nil prints it as is.
	Render func(string) (string, error)
	// Highlight styles button numbers; nil leaves them plain.
	Highlight func(string) string
	Logger    *slog.Logger

	buttons []domain.Button
	state   domain.ConversationState
}

// textStates take free text, so a bare number there is text and buttons need "#n".
var textStates = map[domain.ConversationState]bool{
	domain.StateAddingMembers:   true,
	domain.StateSelectingPayer:  true,
	domain.StateAddingItem:      true,
	domain.StateAddingItemName:  true,
	domain.StateAddingItemPrice: true,
}

const help = `Commands:
  <number>       press a button (#<number> while text is expected)
  /photo <path>  send a receipt photo
  /file <path>   send a table
  /split         start over
  /cancel        discard the calculation
  /quit          leave`

// Run starts a calculation and processes lines until /quit, EOF or ctx is done.
func (c *Chat) Run(ctx context.Context) error {
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	reply, err := c.Engine.Start(ctx, c.ActorID)
	if err != nil {
		return err
	}
	c.show(reply)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.In)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		fmt.Fprint(c.Out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.Out)
				return <-readErr
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/help":
			fmt.Fprintln(c.Out, help)
			continue
		}

		ev, err := c.parse(line)
		if err != nil {
			fmt.Fprintf(c.Out, "%v\n", err)
			continue
		}
		reply, err := c.Engine.Handle(ctx, c.ActorID, ev)
		if err != nil {
			c.Logger.Error("Event failed", "err", err)
			fmt.Fprintf(c.Out, "Error: %v\n", err)
			continue
		}
		c.show(reply)
	}
}

// parse turns an input line into an event.
func (c *Chat) parse(line string) (domain.Event, error) {
	choice, hashed := strings.CutPrefix(line, "#")
	if hashed || !textStates[c.state] {
		if n, err := strconv.Atoi(choice); err == nil && len(c.buttons) > 0 {
			if n < 1 || n > len(c.buttons) {
				return domain.Event{}, fmt.Errorf("choose a button between 1 and %d", len(c.buttons))
			}
			return c.buttons[n-1].Event, nil
		}
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/split":
		return domain.Press(domain.ActionBegin), nil
	case "/cancel":
		return domain.Press(domain.ActionCancel), nil
	case "/photo", "/file":
		if arg == "" {
			return domain.Event{}, fmt.Errorf("usage: %s <path>", cmd)
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return domain.Event{}, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if cmd == "/photo" {
			return domain.Photo(data), nil
		}
		return domain.Document(filepath.Base(arg), data), nil
	}
	return domain.Text(line), nil
}

func (c *Chat) show(reply domain.Reply) {
	c.buttons = nil
	c.state = reply.State
	for _, m := range reply.Messages {
		text := m.Text
		if c.Render != nil {
			if rendered, err := c.Render(text); err == nil {
				text = strings.TrimSpace(rendered)
			}
		}
		fmt.Fprintln(c.Out, text)

		if m.Keyboard == nil {
			continue
		}
		c.buttons = m.Keyboard.Buttons()
		n := 0
		for _, row := range m.Keyboard.Rows {
			labels := make([]string, len(row))
			for i, b := range row {
				n++
				labels[i] = fmt.Sprintf("%s %s", c.number(n), b.Label)
			}
			fmt.Fprintln(c.Out, "  "+strings.Join(labels, "   "))
		}
	}

	for _, a := range reply.Artifacts {
		path, err := c.save(a)
		if err != nil {
			c.Logger.Error("Artifact save failed", "name", a.Name, "err", err)
			fmt.Fprintf(c.Out, "Could not save %s: %v\n", a.Name, err)
			continue
		}
		fmt.Fprintf(c.Out, "Saved %s\n", path)
	}
	if reply.Ended {
		fmt.Fprintln(c.Out, "Type /split to start a new calculation or /quit to leave.")
	}
}

func (c *Chat) number(n int) string {
	s := fmt.Sprintf("[%d]", n)
	if c.Highlight != nil {
		return c.Highlight(s)
	}
	return s
}

func (c *Chat) save(a domain.Artifact) (string, error) {
	name := filepath.Base(a.Name)
	if name == "." || name == string(filepath.Separator) {
		return "", errors.New("artifact has no name")
	}
	path := filepath.Join(c.OutDir, name)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// NewTerminalChat configures a Chat on stdin/stdout, with markdown rendering and
// colored button numbers when stdout is a terminal.
func NewTerminalChat(engine Engine, actorID, outDir string, interactive bool, logger *slog.Logger) *Chat {
	c := &Chat{
		Engine:  engine,
		ActorID: actorID,
		In:      os.Stdin,
		Out:     os.Stdout,
		OutDir:  outDir,
		Logger:  logger,
	}
	if interactive {
		c.Render = tui.NewRenderer()
		c.Highlight = tui.Highlight
	}
	return c
}
