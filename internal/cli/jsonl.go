package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
)

// JSONLines drives one actor's conversation over JSON Lines, for scripts and headless hosts.
// Each input line is an event object, a JSON string or plain text; each reply is written
// as one JSON object per line.
type JSONLines struct {
	Engine  Engine
	ActorID string
	In      io.Reader
	Out     io.Writer
}

// jsonError is written instead of a reply when an event could not be processed.
type jsonError struct {
	Error string `json:"error"`
}

// Run starts a calculation and answers every line until EOF or ctx is done.
func (j *JSONLines) Run(ctx context.Context) error {
	enc := json.NewEncoder(j.Out)

	reply, err := j.Engine.Start(ctx, j.ActorID)
	if err != nil {
		return err
	}
	if err := enc.Encode(reply); err != nil {
		return err
	}

	scanner := bufio.NewScanner(j.In)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := j.Engine.Handle(ctx, j.ActorID, ParseEventLine(line))
		var out any = reply
		if err != nil {
			out = jsonError{Error: err.Error()}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// ParseEventLine decodes an event object, then a JSON string, and falls back to plain text.
func ParseEventLine(line string) domain.Event {
	if strings.HasPrefix(line, "{") {
		var ev domain.Event
		if err := json.Unmarshal([]byte(line), &ev); err == nil {
			if ev.Type == "" {
				ev.Type = domain.EventText
				if ev.Action != "" {
					ev.Type = domain.EventAction
				}
			}
			return ev
		}
	}
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return domain.Text(s)
	}
	return domain.Text(line)
}
