package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFixture() *store.Snapshot {
	return &store.Snapshot{
		Conversations: []entity.Conversation{{Id: "c1", Title: "First"}},
		Histories: map[string][]entity.Message{
			"c1": {{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "hi"}},
		},
		CurrentId: "c1",
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	_, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, "s1", snapshotFixture()))

	loaded, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c1", loaded.CurrentId)
	require.Len(t, loaded.Histories["c1"], 1)
	assert.Equal(t, "hi", loaded.Histories["c1"][0].Content)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, found, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionStoreLoadsAreIndependent(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", snapshotFixture()))

	first, _, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	second, _, err := s.Load(ctx, "s1")
	require.NoError(t, err)

	// Two tabs sharing one session cookie each get their own copy; mutating
	// one must not bleed into the other.
	first.Histories["c1"] = append(first.Histories["c1"], entity.Message{
		Id: "m2", ConversationId: "c1", Role: entity.RoleAssistant, Content: "hello",
	})
	first.Histories["c2"] = []entity.Message{}

	assert.Len(t, second.Histories["c1"], 1)
	assert.NotContains(t, second.Histories, "c2")
}

func TestSessionStoreSaveDetachesCaller(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()

	snapshot := snapshotFixture()
	require.NoError(t, s.Save(ctx, "s1", snapshot))
	snapshot.Histories["c1"][0].Content = "mutated after save"

	loaded, _, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hi", loaded.Histories["c1"][0].Content)
}

func TestSessionStoreConcurrentAccess(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", snapshotFixture()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			snapshot, found, err := s.Load(ctx, "s1")
			assert.NoError(t, err)
			assert.True(t, found)
			snapshot.Histories["c1"] = append(snapshot.Histories["c1"], entity.Message{
				Id:             fmt.Sprintf("m%d", n),
				ConversationId: "c1",
				Role:           entity.RoleUser,
				Content:        "concurrent",
			})
			assert.NoError(t, s.Save(ctx, "s1", snapshot))
		}(i)
	}
	wg.Wait()

	loaded, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	// Last write wins; whichever goroutine saved last contributed exactly one
	// appended message.
	assert.Len(t, loaded.Histories["c1"], 2)
}
