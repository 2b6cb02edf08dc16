package chat

import (
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/llm"
)

// ToLLMMessages converts stored messages into the generator's alternating
// turn format. Roles are a closed set validated at ingestion, so no entry is
// ever skipped here.
func ToLLMMessages(history []entity.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		out = append(out, llm.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}
