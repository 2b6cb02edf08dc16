package search

import (
	"context"
	"fmt"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/embedding"
)

// Searcher turns a text query into a vector search against the chunk index.
type Searcher struct {
	embeddingProvider embedding.Provider
	chunkRepo         contract.ChunkRepository
}

func NewSearcher(embeddingProvider embedding.Provider, chunkRepo contract.ChunkRepository) *Searcher {
	return &Searcher{
		embeddingProvider: embeddingProvider,
		chunkRepo:         chunkRepo,
	}
}

func (s *Searcher) NearestNeighbors(ctx context.Context, query string, k int) ([]entity.SearchHit, error) {
	vector, err := s.embeddingProvider.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	hits, err := s.chunkRepo.SearchNearest(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return hits, nil
}
