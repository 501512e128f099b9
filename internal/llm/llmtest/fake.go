// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/hpungsan/pathfinder/internal/llm"
)

// Fake is a scripted Generator. Respond decides the reply for every call;
// when nil, Fake echoes Reply (or fails with Err).
type Fake struct {
	Respond func(req llm.Request) (string, error)
	Reply   string
	Err     error

	mu    sync.Mutex
	calls []llm.Request
}

// Generate implements llm.Generator.
func (f *Fake) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Respond != nil {
		return f.Respond(req)
	}
	return f.Reply, f.Err
}

// Stream implements llm.Generator by splitting the reply on spaces.
func (f *Fake) Stream(ctx context.Context, req llm.Request, onChunk func(string) error) (string, error) {
	reply, err := f.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	words := strings.SplitAfter(reply, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		if onChunk != nil {
			if err := onChunk(w); err != nil {
				return reply, err
			}
		}
	}
	return reply, nil
}

// Calls returns a copy of every request seen so far.
func (f *Fake) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many requests were made.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ByMarker routes a request to the first reply whose marker appears in the prompt.
// Requests matching no marker fail with llm.ErrUnavailable.
func ByMarker(replies map[string]string) func(llm.Request) (string, error) {
	return func(req llm.Request) (string, error) {
		for marker, reply := range replies {
			if strings.Contains(req.Prompt, marker) {
				return reply, nil
			}
		}
		return "", llm.ErrUnavailable
	}
}
