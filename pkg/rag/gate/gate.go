package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
)

// Index is the nearest-neighbor view of the document corpus. Results come
// back ordered by ascending distance.
type Index interface {
	NearestNeighbors(ctx context.Context, query string, k int) ([]entity.SearchHit, error)
}

// Bounds describe the adjustable threshold range surfaced to clients.
type Bounds struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Evaluation is the outcome of one gating decision. When UsedRetrieval is
// false the other fields are empty and generation falls back to general
// knowledge.
type Evaluation struct {
	UsedRetrieval bool
	Context       string
	Prompt        string
	Hits          []entity.SearchHit
}

// Gate decides per query whether retrieved context should drive the answer.
// The threshold is a plain runtime-tunable scalar: one hit at or under it
// opens the gate, and once open all k hits flow into the context. Lower
// distance means a closer match, so lowering the threshold tightens the gate.
type Gate struct {
	index  Index
	logger logger.ILogger
	k      int
	bounds Bounds

	mu        sync.RWMutex
	threshold float64
}

func New(index Index, log logger.ILogger, k int, threshold float64, bounds Bounds) *Gate {
	return &Gate{
		index:     index,
		logger:    log,
		k:         k,
		threshold: threshold,
		bounds:    bounds,
	}
}

func (g *Gate) Threshold() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.threshold
}

// SetThreshold clamps to the configured bounds. Last writer wins across
// workers sharing one gate.
func (g *Gate) SetThreshold(v float64) float64 {
	if v < g.bounds.Min {
		v = g.bounds.Min
	}
	if v > g.bounds.Max {
		v = g.bounds.Max
	}
	g.mu.Lock()
	g.threshold = v
	g.mu.Unlock()
	return v
}

func (g *Gate) Bounds() Bounds {
	return g.bounds
}

// Search runs the nearest-neighbor query and reports whether any hit clears
// the distance threshold.
func (g *Gate) Search(ctx context.Context, query string) ([]entity.SearchHit, bool, error) {
	hits, err := g.index.NearestNeighbors(ctx, query, g.k)
	if err != nil {
		return nil, false, err
	}

	threshold := g.Threshold()
	used := false
	for _, hit := range hits {
		if hit.Distance <= threshold {
			used = true
			break
		}
	}

	g.logger.Debug("gate", "retrieval decision", map[string]interface{}{
		"hits":      len(hits),
		"threshold": threshold,
		"used":      used,
	})

	return hits, used, nil
}

// BuildContext renders hits as a numbered, human-readable reference block.
func (g *Gate) BuildContext(hits []entity.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}

	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		parts = append(parts, fmt.Sprintf("[Reference %d] (%s / page %d)\n%s", i+1, hit.Source, hit.Page, hit.Text))
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt wraps the context between fixed markers and appends the
// question, for injection under the retrieval system instruction.
func (g *Gate) BuildPrompt(question, context string) string {
	return fmt.Sprintf(`===== Reference Material =====
%s
==============================

User question: %s`, context, question)
}

// Evaluate composes Search, BuildContext and BuildPrompt into one gating
// decision. An index failure returns a closed-gate evaluation alongside the
// error so callers can degrade to the non-retrieval path.
func (g *Gate) Evaluate(ctx context.Context, question string) (*Evaluation, error) {
	hits, used, err := g.Search(ctx, question)
	if err != nil {
		return &Evaluation{}, err
	}

	if !used {
		return &Evaluation{}, nil
	}

	context := g.BuildContext(hits)
	return &Evaluation{
		UsedRetrieval: true,
		Context:       context,
		Prompt:        g.BuildPrompt(question, context),
		Hits:          hits,
	}, nil
}
