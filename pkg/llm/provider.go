package llm

import (
	"context"
	"io"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// Stream is a finite, single-pass sequence of response fragments. Recv
// returns io.EOF when the generation completes; any other error means the
// stream died mid-flight and the output so far must be treated as garbage.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider defines the contract for any LLM backend
type Provider interface {
	// Chat sends a system instruction plus history and returns the full response
	Chat(ctx context.Context, system string, history []Message, options ...Option) (string, error)

	// ChatStream is the streaming variant of Chat
	ChatStream(ctx context.Context, system string, history []Message, options ...Option) (Stream, error)
}

// Collect drains a stream into the concatenated full text.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var full string
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return full, nil
		}
		if err != nil {
			return "", err
		}
		full += fragment
	}
}
