// Package chat answers questions over retrieved, redacted documents as a stream
// of newline-delimited JSON events.
package chat

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

const (
	// SystemPrompt instructs the model how to treat the retrieved context.
	SystemPrompt = "You are GuardRail AI. Use the Context to answer. " +
		"If asked for opinions, use general knowledge. " +
		"Context contains placeholder tags such as <PER>, <EMAIL> or <SSN> where personal data was removed for safety."

	// ContextSeparator joins the texts of retrieved documents.
	ContextSeparator = "\n\n---\n\n"

	// DefaultHistoryTurns is how many prior messages are replayed to the model.
	DefaultHistoryTurns = 4
)

var errNoModel = errors.New("chat model not configured")

// Request is one question with its retrieval results.
type Request struct {
	Query   string
	History []models.ChatMessage
	Matches []models.ScoredMatch
	Debug   bool
}

// Composer builds the prompt and streams the model's answer.
type Composer struct {
	model        Model
	historyTurns int
	logger       *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithHistoryTurns overrides DefaultHistoryTurns. Zero drops history entirely.
func WithHistoryTurns(n int) Option {
	return func(c *Composer) {
		if n >= 0 {
			c.historyTurns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// NewComposer returns a Composer. A nil model makes every answer a single error event.
func NewComposer(model Model, opts ...Option) *Composer {
	c := &Composer{model: model, historyTurns: DefaultHistoryTurns}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// BuildContext joins the full texts of matches in rank order.
func BuildContext(matches []models.ScoredMatch) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return strings.Join(texts, ContextSeparator)
}

// Messages returns the conversation sent to the model.
func (c *Composer) Messages(query, contextText string, history []models.ChatMessage) []models.ChatMessage {
	kept := make([]models.ChatMessage, 0, len(history))
	for _, m := range history {
		if (m.Role == models.RoleUser || m.Role == models.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) > c.historyTurns {
		kept = kept[len(kept)-c.historyTurns:]
	}

	msgs := make([]models.ChatMessage, 0, len(kept)+2)
	msgs = append(msgs, models.ChatMessage{Role: models.RoleSystem, Content: SystemPrompt})
	msgs = append(msgs, kept...)
	msgs = append(msgs, models.ChatMessage{
		Role:    models.RoleUser,
		Content: "Context:\n" + contextText + "\n\nQuestion: " + query,
	})
	return msgs
}

// Compose streams the answer to req. The channel yields an optional debug event,
// then tokens, then at most one error event, and is closed when the answer ends.
// If ctx ends first the channel is closed without an error event.
func (c *Composer) Compose(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		contextText := BuildContext(req.Matches)
		if req.Debug {
			matches := make([]VectorMatch, len(req.Matches))
			for i, m := range req.Matches {
				matches[i] = VectorMatch{Filename: m.Filename, Score: roundScore(m.Score)}
			}
			if !send(DebugEvent{Context: contextText, Matches: matches}) {
				return
			}
		}

		if c.model == nil {
			send(ErrorEvent{Content: errNoModel.Error()})
			return
		}
		stream, err := c.model.Stream(ctx, c.Messages(req.Query, contextText, req.History))
		if err != nil {
			c.fail(ctx, send, err)
			return
		}
		defer stream.Close()

		for {
			tok, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				c.fail(ctx, send, err)
				return
			}
			if tok == "" {
				continue
			}
			if !send(TokenEvent{Content: tok}) {
				return
			}
		}
	}()
	return events
}

func (c *Composer) fail(ctx context.Context, send func(Event) bool, err error) {
	if ctx.Err() != nil {
		return
	}
	c.logger.Warn("chat stream failed", zap.Error(err))
	send(ErrorEvent{Content: err.Error()})
}

func roundScore(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}
