package entity

import "fmt"

// SearchHit is a transient nearest-neighbor result. Distance is a
// dissimilarity score, lower means more relevant.
type SearchHit struct {
	Text       string
	Distance   float64
	Source     string
	Page       int
	ChunkIndex int
}

// ChunkRef collapses the hit into its persistable summary.
func (h SearchHit) ChunkRef() ChunkRef {
	return ChunkRef{
		ChunkID:  fmt.Sprintf("%s_%d_%d", h.Source, h.Page, h.ChunkIndex),
		Distance: h.Distance,
		Source:   h.Source,
	}
}
