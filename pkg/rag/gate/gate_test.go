package gate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-docchat-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeIndex struct {
	hits []entity.SearchHit
	err  error
}

func (f *fakeIndex) NearestNeighbors(_ context.Context, _ string, _ int) ([]entity.SearchHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func newTestGate(index *fakeIndex, threshold float64) *Gate {
	return New(index, nopLogger{}, 3, threshold, Bounds{Min: 0.0, Max: 2.0, Step: 0.1})
}

func TestSearchThresholdDecision(t *testing.T) {
	hits := []entity.SearchHit{
		{Text: "alpha", Distance: 0.9, Source: "guide.pdf", Page: 1, ChunkIndex: 0},
		{Text: "beta", Distance: 1.3, Source: "guide.pdf", Page: 2, ChunkIndex: 1},
		{Text: "gamma", Distance: 1.8, Source: "manual.pdf", Page: 7, ChunkIndex: 4},
	}

	tests := []struct {
		name      string
		threshold float64
		want      bool
	}{
		{"below best hit", 0.5, false},
		{"equal to best hit", 0.9, true},
		{"default threshold", 1.2, true},
		{"above all hits", 2.0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGate(&fakeIndex{hits: hits}, tc.threshold)
			got, used, err := g.Search(context.Background(), "question")
			require.NoError(t, err)
			assert.Equal(t, tc.want, used)
			assert.Equal(t, hits, got)
		})
	}
}

func TestEvaluateIncludesAllHitsOnceOpen(t *testing.T) {
	hits := []entity.SearchHit{
		{Text: "close match", Distance: 0.9, Source: "guide.pdf", Page: 1, ChunkIndex: 0},
		{Text: "weak match", Distance: 1.8, Source: "manual.pdf", Page: 7, ChunkIndex: 4},
	}
	g := newTestGate(&fakeIndex{hits: hits}, 1.2)

	eval, err := g.Evaluate(context.Background(), "question")
	require.NoError(t, err)

	assert.True(t, eval.UsedRetrieval)
	assert.Len(t, eval.Hits, 2, "one qualifying hit opens the gate for the whole batch")
	assert.Contains(t, eval.Context, "weak match")
}

func TestEvaluateClosedGate(t *testing.T) {
	hits := []entity.SearchHit{
		{Text: "far away", Distance: 1.9, Source: "guide.pdf", Page: 3, ChunkIndex: 2},
	}
	g := newTestGate(&fakeIndex{hits: hits}, 1.2)

	eval, err := g.Evaluate(context.Background(), "question")
	require.NoError(t, err)

	assert.False(t, eval.UsedRetrieval)
	assert.Empty(t, eval.Context)
	assert.Empty(t, eval.Prompt)
	assert.Empty(t, eval.Hits)
}

func TestEvaluateEmptyIndex(t *testing.T) {
	g := newTestGate(&fakeIndex{}, 1.2)

	eval, err := g.Evaluate(context.Background(), "question")
	require.NoError(t, err)
	assert.False(t, eval.UsedRetrieval)
}

func TestEvaluateIndexFailure(t *testing.T) {
	g := newTestGate(&fakeIndex{err: errors.New("embedding service down")}, 1.2)

	eval, err := g.Evaluate(context.Background(), "question")
	require.Error(t, err)
	require.NotNil(t, eval)
	assert.False(t, eval.UsedRetrieval, "a failed search must read as a closed gate")
}

func TestBuildContextFormat(t *testing.T) {
	g := newTestGate(&fakeIndex{}, 1.2)
	hits := []entity.SearchHit{
		{Text: "first chunk", Distance: 0.5, Source: "guide.pdf", Page: 3, ChunkIndex: 0},
		{Text: "second chunk", Distance: 0.8, Source: "manual.pdf", Page: 12, ChunkIndex: 5},
	}

	context := g.BuildContext(hits)

	assert.Contains(t, context, "[Reference 1] (guide.pdf / page 3)\nfirst chunk")
	assert.Contains(t, context, "[Reference 2] (manual.pdf / page 12)\nsecond chunk")
	assert.Equal(t, 2, strings.Count(context, "[Reference"))
}

func TestBuildPromptWrapsContext(t *testing.T) {
	g := newTestGate(&fakeIndex{}, 1.2)

	prompt := g.BuildPrompt("what is the refund policy?", "some reference text")

	assert.True(t, strings.HasPrefix(prompt, "===== Reference Material ====="))
	assert.Contains(t, prompt, "some reference text")
	assert.True(t, strings.HasSuffix(prompt, "User question: what is the refund policy?"))
}

func TestSetThresholdClamps(t *testing.T) {
	g := newTestGate(&fakeIndex{}, 1.2)

	assert.Equal(t, 2.0, g.SetThreshold(5.0))
	assert.Equal(t, 0.0, g.SetThreshold(-1.0))
	assert.Equal(t, 0.7, g.SetThreshold(0.7))
	assert.Equal(t, 0.7, g.Threshold())
}
