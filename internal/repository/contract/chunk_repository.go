package contract

import (
	"context"

	"ai-docchat-be/internal/entity"
)

// IndexStats summarizes the chunk index for status reporting.
type IndexStats struct {
	TotalChunks int64
	BySource    map[string]int64
}

// ChunkRepository queries the embedded document chunks. Ingestion (loading,
// chunking, embedding, upserting) happens elsewhere; the chat core only reads
// and, for maintenance, clears.
type ChunkRepository interface {
	// SearchNearest returns the k nearest chunks by cosine distance,
	// ascending (lower = more relevant).
	SearchNearest(ctx context.Context, embedding []float32, k int) ([]entity.SearchHit, error)
	Stats(ctx context.Context) (*IndexStats, error)
	Clear(ctx context.Context) error
}
