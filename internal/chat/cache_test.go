package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"ai-docchat-be/internal/apperr"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeSessionStore struct {
	snapshots map[string]*store.Snapshot
	saveCalls int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{snapshots: make(map[string]*store.Snapshot)}
}

func (s *fakeSessionStore) Load(_ context.Context, key string) (*store.Snapshot, bool, error) {
	snapshot, ok := s.snapshots[key]
	return snapshot, ok, nil
}

func (s *fakeSessionStore) Save(_ context.Context, key string, snapshot *store.Snapshot) error {
	s.saveCalls++
	s.snapshots[key] = snapshot
	return nil
}

func (s *fakeSessionStore) Delete(_ context.Context, key string) error {
	delete(s.snapshots, key)
	return nil
}

type fakeConversationRepo struct {
	conversations []*entity.Conversation
	createErr     error
	updateErr     error
	findAllErr    error
	findAllCalls  int
	created       []*entity.Conversation
	updatedTitles map[string]string
}

func newFakeConversationRepo(conversations ...*entity.Conversation) *fakeConversationRepo {
	return &fakeConversationRepo{conversations: conversations, updatedTitles: make(map[string]string)}
}

func (r *fakeConversationRepo) Create(_ context.Context, conversation *entity.Conversation) error {
	if r.createErr != nil {
		return r.createErr
	}
	if conversation.Id == "" {
		conversation.Id = "remote-id"
	}
	r.created = append(r.created, conversation)
	return nil
}

func (r *fakeConversationRepo) FindOne(_ context.Context, _ ...specification.Specification) (*entity.Conversation, error) {
	return nil, nil
}

func (r *fakeConversationRepo) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Conversation, error) {
	r.findAllCalls++
	if r.findAllErr != nil {
		return nil, r.findAllErr
	}
	return r.conversations, nil
}

func (r *fakeConversationRepo) UpdateTitle(_ context.Context, id string, title string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updatedTitles[id] = title
	return nil
}

func (r *fakeConversationRepo) Delete(_ context.Context, _ string) error { return nil }

type fakeMessageRepo struct {
	messages     map[string][]*entity.Message
	createErr    error
	findAllErr   error
	findAllCalls int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]*entity.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, message *entity.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.messages[message.ConversationId] = append(r.messages[message.ConversationId], message)
	return nil
}

func (r *fakeMessageRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.findAllCalls++
	if r.findAllErr != nil {
		return nil, r.findAllErr
	}
	for _, spec := range specs {
		if byConv, ok := spec.(specification.ByConversationID); ok {
			return r.messages[byConv.ConversationID], nil
		}
	}
	return nil, nil
}

type fakeProvider struct {
	response    string
	err         error
	lastHistory []llm.Message
}

func (p *fakeProvider) Chat(_ context.Context, _ string, history []llm.Message, _ ...llm.Option) (string, error) {
	p.lastHistory = history
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *fakeProvider) ChatStream(_ context.Context, _ string, _ []llm.Message, _ ...llm.Option) (llm.Stream, error) {
	return nil, errors.New("not implemented")
}

func newTestCache(t *testing.T, sessions *fakeSessionStore, convRepo *fakeConversationRepo, msgRepo *fakeMessageRepo, provider *fakeProvider) *Cache {
	t.Helper()
	if sessions == nil {
		sessions = newFakeSessionStore()
	}
	if convRepo == nil {
		convRepo = newFakeConversationRepo()
	}
	if msgRepo == nil {
		msgRepo = newFakeMessageRepo()
	}
	if provider == nil {
		provider = &fakeProvider{response: "Title"}
	}
	return NewCache(context.Background(), "session-1", sessions, convRepo, msgRepo, provider, nopLogger{}, 15)
}

func TestNewCacheAdoptsSnapshot(t *testing.T) {
	sessions := newFakeSessionStore()
	sessions.snapshots["session-1"] = &store.Snapshot{
		Conversations: []entity.Conversation{{Id: "c1", Title: "Kept"}},
		Histories: map[string][]entity.Message{
			"c1": {{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "hi"}},
		},
		CurrentId: "c1",
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "remote", Title: "Remote"})

	cache := newTestCache(t, sessions, convRepo, nil, nil)

	assert.Equal(t, 0, convRepo.findAllCalls, "adopted snapshot must not trigger a remote fetch")
	require.Len(t, cache.ListConversations(), 1)
	assert.Equal(t, "Kept", cache.ListConversations()[0].Title)

	history, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Content)
}

func TestNewCacheFetchesFreshSession(t *testing.T) {
	convRepo := newFakeConversationRepo(
		&entity.Conversation{Id: "c2", Title: "Newer"},
		&entity.Conversation{Id: "c1", Title: "Older"},
	)
	sessions := newFakeSessionStore()

	cache := newTestCache(t, sessions, convRepo, nil, nil)

	assert.Equal(t, 1, convRepo.findAllCalls)
	require.Len(t, cache.ListConversations(), 2)
	assert.Equal(t, "c2", cache.ListConversations()[0].Id)
	require.Contains(t, sessions.snapshots, "session-1")
	assert.Len(t, sessions.snapshots["session-1"].Conversations, 2)
}

func TestNewCacheDegradesOnRemoteFailure(t *testing.T) {
	convRepo := newFakeConversationRepo()
	convRepo.findAllErr = errors.New("store down")
	sessions := newFakeSessionStore()

	cache := newTestCache(t, sessions, convRepo, nil, nil)

	assert.Empty(t, cache.ListConversations())
	assert.NotContains(t, sessions.snapshots, "session-1", "failed fetch must not poison the snapshot")
}

func TestGetHistoryFetchesAtMostOnce(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.messages["c1"] = []*entity.Message{
		{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "first"},
		{Id: "m2", ConversationId: "c1", Role: entity.RoleAssistant, Content: "second"},
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "T"})

	cache := newTestCache(t, nil, convRepo, msgRepo, nil)

	first, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	second, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 1, msgRepo.findAllCalls)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "first", first[0].Content)
}

func TestGetHistoryRemoteFailure(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.findAllErr = errors.New("timeout")
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "T"})

	cache := newTestCache(t, nil, convRepo, msgRepo, nil)

	_, err := cache.GetHistory(context.Background(), "c1")
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)

	// The failed load must not mark the history populated.
	msgRepo.findAllErr = nil
	_, err = cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, msgRepo.findAllCalls)
}

func TestAppendMessageWritesThrough(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "T"})
	cache := newTestCache(t, nil, convRepo, msgRepo, nil)

	outcome := cache.AppendMessage(context.Background(), "c1", entity.Message{
		Role:    entity.RoleUser,
		Content: "hello",
	})

	assert.True(t, outcome.Applied)
	assert.True(t, outcome.Persisted)
	assert.NoError(t, outcome.Err)
	require.Len(t, msgRepo.messages["c1"], 1)
	assert.NotEmpty(t, msgRepo.messages["c1"][0].Id)

	history, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
}

func TestAppendMessageKeepsLocalOnRemoteFailure(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.createErr = errors.New("write refused")
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "T"})
	cache := newTestCache(t, nil, convRepo, msgRepo, nil)

	outcome := cache.AppendMessage(context.Background(), "c1", entity.Message{
		Role:    entity.RoleUser,
		Content: "hello",
	})

	assert.True(t, outcome.Applied)
	assert.False(t, outcome.Persisted)
	assert.ErrorIs(t, outcome.Err, apperr.ErrRemoteUnavailable)

	history, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "append must survive the failed write-through")
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	cache := newTestCache(t, nil, nil, nil, nil)

	outcome := cache.AppendMessage(context.Background(), "ghost", entity.Message{
		Role:    entity.RoleUser,
		Content: "hello",
	})

	assert.False(t, outcome.Applied)
	assert.ErrorIs(t, outcome.Err, apperr.ErrNotFound)
}

func TestStartConversationInsertsAtHead(t *testing.T) {
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "Existing"})
	cache := newTestCache(t, nil, convRepo, nil, nil)

	conv := cache.StartConversation(context.Background())

	assert.NotEmpty(t, conv.Id)
	assert.Equal(t, constant.DefaultConversationTitle, conv.Title)
	require.Len(t, cache.ListConversations(), 2)
	assert.Equal(t, conv.Id, cache.ListConversations()[0].Id)
	assert.Empty(t, convRepo.created, "starting a conversation must not touch the remote store")

	history, err := cache.GetHistory(context.Background(), conv.Id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCreateConversationFallsBackToLocalId(t *testing.T) {
	convRepo := newFakeConversationRepo()
	convRepo.createErr = errors.New("unreachable")
	cache := newTestCache(t, nil, convRepo, nil, nil)

	conv := cache.CreateConversation(context.Background(), "Budget notes")

	assert.NotEmpty(t, conv.Id)
	assert.Equal(t, "Budget notes", conv.Title)
	assert.Equal(t, conv.Id, cache.ListConversations()[0].Id)
}

func TestUpdateTitle(t *testing.T) {
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "Old"})
	cache := newTestCache(t, nil, convRepo, nil, nil)

	outcome := cache.UpdateTitle(context.Background(), "c1", "New title")

	assert.True(t, outcome.Applied)
	assert.True(t, outcome.Persisted)
	assert.Equal(t, "New title", cache.TitleByID("c1"))
	assert.Equal(t, "New title", convRepo.updatedTitles["c1"])
}

func TestUpdateTitleUnknownConversation(t *testing.T) {
	cache := newTestCache(t, nil, nil, nil, nil)

	outcome := cache.UpdateTitle(context.Background(), "ghost", "New title")

	assert.False(t, outcome.Applied)
	assert.ErrorIs(t, outcome.Err, apperr.ErrNotFound)
}

func TestTitleByIDUnknownReturnsSentinel(t *testing.T) {
	cache := newTestCache(t, nil, nil, nil, nil)
	assert.Equal(t, constant.UnknownConversationTitle, cache.TitleByID("ghost"))
}

func TestRefreshDropsCachedHistories(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.messages["c1"] = []*entity.Message{
		{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "hi"},
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "T"})
	cache := newTestCache(t, nil, convRepo, msgRepo, nil)

	_, err := cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	require.NoError(t, cache.Refresh(context.Background()))

	_, err = cache.GetHistory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, msgRepo.findAllCalls, "refresh must force a lazy re-fetch")
	assert.Equal(t, 2, convRepo.findAllCalls)
}

func TestShouldGenerateTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		messages int
		want     bool
	}{
		{"sentinel title, full exchange", constant.DefaultConversationTitle, 2, true},
		{"sentinel prefix survives suffixing", constant.DefaultConversationTitle + " (2)", 2, true},
		{"sentinel title, lone user message", constant.DefaultConversationTitle, 1, false},
		{"sentinel title, empty history", constant.DefaultConversationTitle, 0, false},
		{"already titled", "Quarterly report", 4, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msgRepo := newFakeMessageRepo()
			for i := 0; i < tc.messages; i++ {
				role := entity.RoleUser
				if i%2 == 1 {
					role = entity.RoleAssistant
				}
				msgRepo.messages["c1"] = append(msgRepo.messages["c1"], &entity.Message{
					Id: "m", ConversationId: "c1", Role: role, Content: "x",
				})
			}
			convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: tc.title})
			cache := newTestCache(t, nil, convRepo, msgRepo, nil)

			assert.Equal(t, tc.want, cache.ShouldGenerateTitle(context.Background(), "c1"))
		})
	}
}

func TestGenerateTitleUsesOpeningExchangeOnly(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.messages["c1"] = []*entity.Message{
		{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "opening question"},
		{Id: "m2", ConversationId: "c1", Role: entity.RoleAssistant, Content: "opening answer"},
		{Id: "m3", ConversationId: "c1", Role: entity.RoleUser, Content: "later question"},
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: constant.DefaultConversationTitle})
	provider := &fakeProvider{response: "  Opening topic  "}
	cache := newTestCache(t, nil, convRepo, msgRepo, provider)

	title, err := cache.GenerateTitle(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "Opening topic", title)
	require.Len(t, provider.lastHistory, 2)
	assert.Equal(t, "opening question", provider.lastHistory[0].Content)
}

func TestGenerateTitleHardCut(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.messages["c1"] = []*entity.Message{
		{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "q"},
		{Id: "m2", ConversationId: "c1", Role: entity.RoleAssistant, Content: "a"},
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: constant.DefaultConversationTitle})
	provider := &fakeProvider{response: strings.Repeat("ab", 20)}
	cache := newTestCache(t, nil, convRepo, msgRepo, provider)

	title, err := cache.GenerateTitle(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 15, len([]rune(title)))
}

func TestGenerateTitleCountsRunesNotBytes(t *testing.T) {
	msgRepo := newFakeMessageRepo()
	msgRepo.messages["c1"] = []*entity.Message{
		{Id: "m1", ConversationId: "c1", Role: entity.RoleUser, Content: "q"},
		{Id: "m2", ConversationId: "c1", Role: entity.RoleAssistant, Content: "a"},
	}
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: constant.DefaultConversationTitle})
	provider := &fakeProvider{response: strings.Repeat("판", 20)}
	cache := newTestCache(t, nil, convRepo, msgRepo, provider)

	title, err := cache.GenerateTitle(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 15, len([]rune(title)))
	assert.Equal(t, strings.Repeat("판", 15), title)
}

func TestConcurrentCachesForOneSession(t *testing.T) {
	sessions := memory.NewSessionStore()
	convRepo := newFakeConversationRepo(&entity.Conversation{Id: "c1", Title: "Shared"})

	// Two request cycles in flight for the same session key (two tabs, or
	// HTTP and websocket together). Each cache must own its snapshot copy;
	// the session store resolves their writes last-write-wins.
	first := NewCache(context.Background(), "s1", sessions, convRepo, newFakeMessageRepo(), nil, nopLogger{}, 15)
	second := NewCache(context.Background(), "s1", sessions, convRepo, newFakeMessageRepo(), nil, nopLogger{}, 15)

	var wg sync.WaitGroup
	for _, cache := range []*Cache{first, second} {
		wg.Add(1)
		go func(c *Cache) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				c.AppendMessage(context.Background(), "c1", entity.Message{
					Role:    entity.RoleUser,
					Content: "ping",
				})
			}
		}(cache)
	}
	wg.Wait()

	snapshot, found, err := sessions.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, snapshot.Histories["c1"], 20)
}
