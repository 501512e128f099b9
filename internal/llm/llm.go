package llm

import (
	"context"
	"errors"

	"github.com/hpungsan/pathfinder/internal/config"
	"github.com/hpungsan/pathfinder/internal/content"
)

// ErrUnavailable is returned by every call when no API key is configured.
var ErrUnavailable = errors.New("language model unavailable: no API key configured")

// Message is one prior turn of a conversation.
type Message struct {
	Role    content.Role
	Content string
}

// Request is a single generation call.
type Request struct {
	// System is an optional system instruction.
	System string

	// History holds earlier turns, oldest first.
	History []Message

	// Prompt is the new user turn.
	Prompt string
}

// Generator produces text from a prompt. Implementations must be safe for
// concurrent use.
type Generator interface {
	// Generate returns the complete response text.
	Generate(ctx context.Context, req Request) (string, error)

	// Stream calls onChunk for every piece of text as it arrives and returns
	// the concatenated response. A non-nil error from onChunk aborts the stream.
	Stream(ctx context.Context, req Request, onChunk func(string) error) (string, error)
}

// New returns a Gemini-backed generator, or Unavailable when cfg has no API key.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	if cfg.APIKey == "" {
		return Unavailable{}, nil
	}
	return NewGemini(ctx, cfg.APIKey, cfg.Model)
}

// Unavailable is a Generator that always fails with ErrUnavailable.
type Unavailable struct{}

// Generate implements Generator.
func (Unavailable) Generate(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}

// Stream implements Generator.
func (Unavailable) Stream(context.Context, Request, func(string) error) (string, error) {
	return "", ErrUnavailable
}
