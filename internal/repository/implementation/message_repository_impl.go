package implementation

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"

	"github.com/lithammer/shortuuid/v3"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	if message.Id == "" {
		message.Id = shortuuid.New()
	}
	m, err := r.mapper.MessageToModel(message)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.MessageToEntity(m)
	if err != nil {
		return err
	}
	*message = *e
	return nil
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Message, len(models))
	for i, m := range models {
		e, err := r.mapper.MessageToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}
