package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentChunk is one embedded slice of an ingested document. The ingestion
// pipeline writes these rows; the chat core only queries them.
type DocumentChunk struct {
	Id         string          `gorm:"type:text;primaryKey"`
	Source     string          `gorm:"type:text;not null;index"`
	Page       int             `gorm:"not null"`
	ChunkIndex int             `gorm:"not null"`
	Content    string          `gorm:"type:text;not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
