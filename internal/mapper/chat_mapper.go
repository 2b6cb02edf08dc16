package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Conversation Mappers

func (m *ChatMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Conversation{
		Id:        c.Id,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Conversation{
		Id:        c.Id,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// Message Mappers

// MessageToEntity rejects rows with roles outside the closed user/assistant
// set instead of dropping them.
func (m *ChatMapper) MessageToEntity(msg *model.Message) (*entity.Message, error) {
	if msg == nil {
		return nil, nil
	}

	role, err := entity.ParseRole(msg.Role)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.Id, err)
	}

	var provenance []entity.ChunkRef
	if len(msg.Provenance) > 0 {
		if err := json.Unmarshal(msg.Provenance, &provenance); err != nil {
			return nil, fmt.Errorf("message %s: decode provenance: %w", msg.Id, err)
		}
	}

	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           role,
		Content:        msg.Content,
		IsRetrieved:    msg.IsRetrieved,
		Provenance:     provenance,
		CreatedAt:      msg.CreatedAt,
	}, nil
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) (*model.Message, error) {
	if msg == nil {
		return nil, nil
	}

	var provenance datatypes.JSON
	if len(msg.Provenance) > 0 {
		raw, err := json.Marshal(msg.Provenance)
		if err != nil {
			return nil, fmt.Errorf("message %s: encode provenance: %w", msg.Id, err)
		}
		provenance = datatypes.JSON(raw)
	}

	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           string(msg.Role),
		Content:        msg.Content,
		IsRetrieved:    msg.IsRetrieved,
		Provenance:     provenance,
		CreatedAt:      msg.CreatedAt,
	}, nil
}
