package implementation

import (
	"context"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/model"
	"ai-docchat-be/internal/repository/contract"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{db: db}
}

// SearchNearest orders by pgvector cosine distance, ascending. The distance
// is returned as-is so the gate can compare it against the user threshold.
func (r *ChunkRepositoryImpl) SearchNearest(ctx context.Context, embedding []float32, k int) ([]entity.SearchHit, error) {
	if k <= 0 {
		k = 3
	}

	type result struct {
		model.DocumentChunk
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, embedding <=> ? as distance", queryVector).
		Order("distance ASC").
		Limit(k).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	hits := make([]entity.SearchHit, len(results))
	for i, res := range results {
		hits[i] = entity.SearchHit{
			Text:       res.Content,
			Distance:   res.Distance,
			Source:     res.Source,
			Page:       res.Page,
			ChunkIndex: res.ChunkIndex,
		}
	}
	return hits, nil
}

func (r *ChunkRepositoryImpl) Stats(ctx context.Context) (*contract.IndexStats, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Count(&total).Error; err != nil {
		return nil, err
	}

	type sourceCount struct {
		Source string
		Count  int64
	}
	var counts []sourceCount
	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Select("source, count(*) as count").
		Group("source").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]int64, len(counts))
	for _, c := range counts {
		bySource[c.Source] = c.Count
	}

	return &contract.IndexStats{TotalChunks: total, BySource: bySource}, nil
}

func (r *ChunkRepositoryImpl) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&model.DocumentChunk{}).Error
}
