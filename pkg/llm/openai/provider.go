package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ai-docchat-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *goopenai.Client
	model  string
}

var _ llm.Provider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: goopenai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) buildRequest(system string, history []llm.Message, opts []llm.Option) goopenai.ChatCompletionRequest {
	options := &llm.Options{
		Temperature: 0.7, // Default
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range history {
		role := msg.Role
		if role == "model" {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	return req
}

func (p *OpenAIProvider) Chat(ctx context.Context, system string, history []llm.Message, opts ...llm.Option) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(system, history, opts))
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, system string, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	req := p.buildRequest(system, history, opts)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}
	return &openaiStream{inner: stream}, nil
}

type openaiStream struct {
	inner *goopenai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("openai stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
