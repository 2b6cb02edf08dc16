package model

import "time"

// Conversation ids are opaque strings. They may be generated client-side
// before the record exists, so the column is plain text with no DB default.
type Conversation struct {
	Id        string    `gorm:"type:text;primaryKey"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}
