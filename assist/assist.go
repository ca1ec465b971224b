// Package assist connects the editor to a generative service that turns a
// natural-language prompt into canvas commands. Its output is treated like
// any other input: every command is validated and the whole response is
// committed as a single undoable batch, or not at all.
package assist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/scene"
)

// Context is what the generator sees of the session.
type Context struct {
	DocumentID string           `json:"documentId"`
	Breakpoint scene.Breakpoint `json:"breakpoint"`
	Outline    string           `json:"outline,omitempty"`
	Elements   []scene.Element  `json:"elements"`
	Selection  []string         `json:"selection,omitempty"`
}

// Response is a generator answer. Error is set when the service declined.
type Response struct {
	Commands []scene.Command `json:"commands"`
	Error    string          `json:"error,omitempty"`
}

// Generator produces commands for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, c Context) (*Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, c Context) (*Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, c Context) (*Response, error) {
	return f(ctx, prompt, c)
}

// Apply asks g for commands and commits them to b as one batch. The bus is
// not locked while the generator runs. It returns the number of leaf
// commands applied.
func Apply(ctx context.Context, b *bus.Bus, g Generator, prompt string, c Context) (int, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return 0, &ServiceError{Message: "empty prompt"}
	}
	n, err := b.DispatchAsync(ctx, func(ctx context.Context, q *bus.Queue) error {
		resp, err := g.Generate(ctx, prompt, c)
		if err != nil {
			return err
		}
		if resp == nil {
			return &ServiceError{Message: "no response"}
		}
		if resp.Error != "" {
			return &ServiceError{Message: resp.Error}
		}
		if len(resp.Commands) == 0 {
			return &ServiceError{Message: "no commands generated"}
		}
		sctx := scene.Context{
			Timestamp:   time.Now().UnixMilli(),
			Source:      scene.SourceAI,
			Description: describe(prompt),
		}
		q.SetContext(sctx)
		for i, cmd := range resp.Commands {
			if err := q.Push(stamp(cmd, sctx)); err != nil {
				return &ServiceError{Message: fmt.Sprintf("command %d rejected", i), Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// stamp marks cmd and its batch members as generated.
func stamp(cmd scene.Command, c scene.Context) scene.Command {
	if cmd.Context.Timestamp == 0 {
		cmd.Context.Timestamp = c.Timestamp
	}
	cmd.Context.Source = scene.SourceAI
	if cmd.Context.Description == "" {
		cmd.Context.Description = c.Description
	}
	if p, ok := cmd.Payload.(*scene.BatchPayload); ok {
		subs := make([]scene.Command, len(p.Commands))
		for i, sub := range p.Commands {
			subs[i] = stamp(sub, c)
		}
		cmd.Payload = &scene.BatchPayload{Commands: subs}
	}
	return cmd
}

func describe(prompt string) string {
	const limit = 120
	if r := []rune(prompt); len(r) > limit {
		return "assist: " + string(r[:limit]) + "..."
	}
	return "assist: " + prompt
}
