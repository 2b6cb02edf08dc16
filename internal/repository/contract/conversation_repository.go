package contract

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"
)

// ConversationRepository is the remote system of record for conversations.
type ConversationRepository interface {
	// Create persists a conversation. When the entity carries no id the
	// repository assigns one and writes it back.
	Create(ctx context.Context, conversation *entity.Conversation) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	UpdateTitle(ctx context.Context, id string, title string) error
	Delete(ctx context.Context, id string) error
}
