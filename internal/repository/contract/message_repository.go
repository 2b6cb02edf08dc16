package contract

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"
)

// MessageRepository persists the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
}
