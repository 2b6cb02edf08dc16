package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-docchat-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements Provider
var _ llm.Provider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaProvider) buildRequest(system string, history []llm.Message, stream bool, opts []llm.Option) ([]byte, error) {
	options := &llm.Options{
		Temperature: 0.7, // Default
	}
	for _, opt := range opts {
		opt(options)
	}

	ollamaMessages := make([]ollamaMessage, 0, len(history)+1)
	if system != "" {
		ollamaMessages = append(ollamaMessages, ollamaMessage{Role: "system", Content: system})
	}
	for _, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		ollamaMessages = append(ollamaMessages, ollamaMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Stream:   stream,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}

	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	return json.Marshal(reqPayload)
}

func (o *OllamaProvider) send(ctx context.Context, payload []byte) (*http.Response, error) {
	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	return resp, nil
}

func (o *OllamaProvider) Chat(ctx context.Context, system string, history []llm.Message, opts ...llm.Option) (string, error) {
	payload, err := o.buildRequest(system, history, false, opts)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := o.send(ctx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return ollamaResp.Message.Content, nil
}

// ChatStream reads the NDJSON stream Ollama emits when stream=true, one
// fragment per line until the "done" record.
func (o *OllamaProvider) ChatStream(ctx context.Context, system string, history []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	payload, err := o.buildRequest(system, history, true, opts)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := o.send(ctx, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return &ollamaStream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

type ollamaStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *ollamaStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", fmt.Errorf("unmarshal stream chunk: %w", err)
		}
		if chunk.Done {
			s.done = true
			if chunk.Message.Content == "" {
				return "", io.EOF
			}
		}
		return chunk.Message.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}
	return "", io.EOF
}

func (s *ollamaStream) Close() error {
	return s.body.Close()
}
