package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message rows are append-only. Provenance is stored as a JSON array of chunk
// references and left NULL when the answer did not use retrieval.
type Message struct {
	Id             string         `gorm:"type:text;primaryKey"`
	ConversationId string         `gorm:"type:text;not null;index"`
	Role           string         `gorm:"type:text;not null"`
	Content        string         `gorm:"type:text;not null"`
	IsRetrieved    bool           `gorm:"not null;default:false"`
	Provenance     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`

	Conversation *Conversation `gorm:"foreignKey:ConversationId;references:Id;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Message) TableName() string {
	return "messages"
}
