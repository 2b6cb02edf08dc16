package implementation

import (
	"context"
	"errors"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"

	"github.com/lithammer/shortuuid/v3"
	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.Id == "" {
		conversation.Id = shortuuid.New()
	}
	m := r.mapper.ConversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conversation = *r.mapper.ConversationToEntity(m)
	return nil
}

func (r *ConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	var m model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *ConversationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	var models []*model.Conversation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Conversation, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ConversationToEntity(m)
	}
	return entities, nil
}

func (r *ConversationRepositoryImpl) UpdateTitle(ctx context.Context, id string, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *ConversationRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Conversation{}, "id = ?", id).Error
}
