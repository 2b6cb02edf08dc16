package chat

import (
	"context"
	"fmt"
	"strings"

	"ai-docchat-be/internal/apperr"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"

	"github.com/lithammer/shortuuid/v3"
)

// WriteOutcome distinguishes "saved" from "cached only". Applied reports the
// in-memory mutation, Persisted the remote write; a failed remote write keeps
// the in-memory state (append-first, report-later) and carries the error.
type WriteOutcome struct {
	Applied   bool
	Persisted bool
	Err       error
}

// Cache owns the in-process view of the conversation list and per-conversation
// histories. It is a read-through/write-through convenience layer over the
// remote store: histories load lazily on first access, every mutation is
// forwarded immediately, and the remote store stays the system of record.
//
// The hosting runtime may rebuild all objects between interactions, so the
// cache restores itself from the session-scoped store on construction and
// syncs back after every change.
type Cache struct {
	sessionKey string
	sessions   contract.SessionStore
	convRepo   contract.ConversationRepository
	msgRepo    contract.MessageRepository
	generator  llm.Provider
	logger     logger.ILogger

	titleMaxLength int

	conversations []entity.Conversation
	histories     map[string][]entity.Message
	currentId     string
}

// NewCache adopts an existing session snapshot verbatim when one survives the
// request cycle; only a fresh session fetches the conversation list from the
// remote store. Histories always start lazy.
func NewCache(
	ctx context.Context,
	sessionKey string,
	sessions contract.SessionStore,
	convRepo contract.ConversationRepository,
	msgRepo contract.MessageRepository,
	generator llm.Provider,
	log logger.ILogger,
	titleMaxLength int,
) *Cache {
	c := &Cache{
		sessionKey:     sessionKey,
		sessions:       sessions,
		convRepo:       convRepo,
		msgRepo:        msgRepo,
		generator:      generator,
		logger:         log,
		titleMaxLength: titleMaxLength,
		histories:      make(map[string][]entity.Message),
	}

	snapshot, found, err := sessions.Load(ctx, sessionKey)
	if err != nil {
		log.Warn("chat.cache", "session store load failed, starting fresh", map[string]interface{}{"error": err.Error()})
	}
	if found {
		c.conversations = snapshot.Conversations
		c.histories = snapshot.Histories
		if c.histories == nil {
			c.histories = make(map[string][]entity.Message)
		}
		c.currentId = snapshot.CurrentId
		return c
	}

	if err := c.loadConversationList(ctx); err != nil {
		// Degrade to an empty list; the snapshot is not written so the next
		// session retries the fetch.
		log.Warn("chat.cache", "conversation list fetch failed", map[string]interface{}{"error": err.Error()})
		return c
	}
	c.sync(ctx)
	return c
}

func (c *Cache) loadConversationList(ctx context.Context) error {
	remote, err := c.convRepo.FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrRemoteUnavailable, err)
	}

	conversations := make([]entity.Conversation, 0, len(remote))
	for _, conv := range remote {
		conversations = append(conversations, *conv)
	}
	c.conversations = conversations
	return nil
}

// sync writes the current state back to the session store. Failures degrade
// to a warning; the in-process state keeps serving.
func (c *Cache) sync(ctx context.Context) {
	snapshot := &store.Snapshot{
		Conversations: c.conversations,
		Histories:     c.histories,
		CurrentId:     c.currentId,
	}
	if err := c.sessions.Save(ctx, c.sessionKey, snapshot); err != nil {
		c.logger.Warn("chat.cache", "session snapshot save failed", map[string]interface{}{"error": err.Error()})
	}
}

// ListConversations returns the list most-recently-created first.
func (c *Cache) ListConversations() []entity.Conversation {
	return c.conversations
}

// CurrentId returns the selected conversation, defaulting to the head of the
// list, or to a fresh local conversation when the list is empty.
func (c *Cache) CurrentId(ctx context.Context) string {
	if c.currentId != "" {
		return c.currentId
	}
	if len(c.conversations) > 0 {
		c.currentId = c.conversations[0].Id
	} else {
		c.currentId = c.StartConversation(ctx).Id
	}
	c.sync(ctx)
	return c.currentId
}

func (c *Cache) SetCurrent(ctx context.Context, id string) {
	c.currentId = id
	c.sync(ctx)
}

// TitleByID is a lookup query: unknown ids yield the sentinel title rather
// than an error.
func (c *Cache) TitleByID(id string) string {
	for _, conv := range c.conversations {
		if conv.Id == id {
			return conv.Title
		}
	}
	return constant.UnknownConversationTitle
}

// GetHistory returns the cached history, fetching from the remote store at
// most once per conversation per process lifetime.
func (c *Cache) GetHistory(ctx context.Context, id string) ([]entity.Message, error) {
	if history, ok := c.histories[id]; ok {
		return history, nil
	}

	remote, err := c.msgRepo.FindAll(ctx,
		specification.ByConversationID{ConversationID: id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load history %s: %v", apperr.ErrRemoteUnavailable, id, err)
	}

	history := make([]entity.Message, 0, len(remote))
	for _, msg := range remote {
		history = append(history, *msg)
	}
	c.histories[id] = history
	c.sync(ctx)
	return history, nil
}

// AppendMessage applies the append in memory first, then writes through. The
// in-memory append is never rolled back on a remote failure: losing the
// user's input to a transient network error is worse than a delayed save.
func (c *Cache) AppendMessage(ctx context.Context, id string, message entity.Message) WriteOutcome {
	if !c.knows(id) {
		return WriteOutcome{Err: fmt.Errorf("%w: %s", apperr.ErrNotFound, id)}
	}

	message.ConversationId = id
	if message.Id == "" {
		message.Id = shortuuid.New()
	}

	c.histories[id] = append(c.histories[id], message)
	c.sync(ctx)

	if err := c.msgRepo.Create(ctx, &message); err != nil {
		c.logger.Warn("chat.cache", "message write-through failed", map[string]interface{}{
			"conversation": id,
			"error":        err.Error(),
		})
		return WriteOutcome{
			Applied: true,
			Err:     fmt.Errorf("%w: persist message: %v", apperr.ErrRemoteUnavailable, err),
		}
	}
	return WriteOutcome{Applied: true, Persisted: true}
}

// StartConversation creates a conversation in memory only, under the sentinel
// title. The remote record is created lazily when the first message is
// persisted.
func (c *Cache) StartConversation(ctx context.Context) entity.Conversation {
	conv := entity.Conversation{
		Id:    shortuuid.New(),
		Title: constant.DefaultConversationTitle,
	}
	c.conversations = append([]entity.Conversation{conv}, c.conversations...)
	c.histories[conv.Id] = []entity.Message{}
	c.currentId = conv.Id
	c.sync(ctx)
	return conv
}

// CreateConversation asks the remote store for an id; if that fails the user
// keeps chatting under a locally generated id and persistence is deferred to
// the first message.
func (c *Cache) CreateConversation(ctx context.Context, title string) entity.Conversation {
	conv := entity.Conversation{Title: title}
	if err := c.convRepo.Create(ctx, &conv); err != nil {
		c.logger.Warn("chat.cache", "remote conversation create failed, using local id", map[string]interface{}{"error": err.Error()})
		conv.Id = shortuuid.New()
	}

	c.conversations = append([]entity.Conversation{conv}, c.conversations...)
	c.histories[conv.Id] = []entity.Message{}
	c.currentId = conv.Id
	c.sync(ctx)
	return conv
}

// EnsurePersisted lazily creates the remote conversation record before its
// first message is written.
func (c *Cache) EnsurePersisted(ctx context.Context, id string) error {
	history, err := c.GetHistory(ctx, id)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		return nil
	}

	existing, err := c.convRepo.FindOne(ctx, specification.ByID{ID: id})
	if err == nil && existing != nil {
		return nil
	}

	conv := entity.Conversation{Id: id, Title: c.TitleByID(id)}
	if err := c.convRepo.Create(ctx, &conv); err != nil {
		return fmt.Errorf("%w: create conversation: %v", apperr.ErrRemoteUnavailable, err)
	}
	return nil
}

// UpdateTitle mutates the first matching list entry in place and writes
// through.
func (c *Cache) UpdateTitle(ctx context.Context, id string, newTitle string) WriteOutcome {
	updated := false
	for i := range c.conversations {
		if c.conversations[i].Id == id {
			c.conversations[i].Title = newTitle
			updated = true
			break
		}
	}
	if !updated {
		return WriteOutcome{Err: fmt.Errorf("%w: %s", apperr.ErrNotFound, id)}
	}
	c.sync(ctx)

	if err := c.convRepo.UpdateTitle(ctx, id, newTitle); err != nil {
		c.logger.Warn("chat.cache", "title write-through failed", map[string]interface{}{
			"conversation": id,
			"error":        err.Error(),
		})
		return WriteOutcome{
			Applied: true,
			Err:     fmt.Errorf("%w: persist title: %v", apperr.ErrRemoteUnavailable, err),
		}
	}
	return WriteOutcome{Applied: true, Persisted: true}
}

// Refresh discards cached histories and re-fetches the conversation list,
// reconciling with out-of-band remote changes. Dropped histories re-fetch
// lazily.
func (c *Cache) Refresh(ctx context.Context) error {
	if err := c.loadConversationList(ctx); err != nil {
		return err
	}
	c.histories = make(map[string][]entity.Message)
	c.sync(ctx)
	return nil
}

// ShouldGenerateTitle is true once the opening user+assistant exchange has
// completed and the title still carries the sentinel prefix. The length-2
// floor avoids titling a lone user message with no assistant context yet.
func (c *Cache) ShouldGenerateTitle(ctx context.Context, id string) bool {
	title := c.TitleByID(id)
	if !strings.HasPrefix(title, constant.DefaultConversationTitle) {
		return false
	}

	history, err := c.GetHistory(ctx, id)
	if err != nil {
		return false
	}
	return len(history) >= 2
}

// GenerateTitle asks the generator to summarize the opening exchange. Titles
// reflect how the conversation started, not its latest turn.
func (c *Cache) GenerateTitle(ctx context.Context, id string) (string, error) {
	history, err := c.GetHistory(ctx, id)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", fmt.Errorf("%w: %s has no messages to title", apperr.ErrNotFound, id)
	}

	opening := history
	if len(opening) > 2 {
		opening = opening[:2]
	}

	title, err := c.generator.Chat(ctx, constant.SystemPromptTitle, ToLLMMessages(opening))
	if err != nil {
		return "", fmt.Errorf("%w: generate title: %v", apperr.ErrRemoteUnavailable, err)
	}

	title = strings.TrimSpace(title)
	if runes := []rune(title); len(runes) > c.titleMaxLength {
		title = string(runes[:c.titleMaxLength])
	}
	return title, nil
}

func (c *Cache) knows(id string) bool {
	for _, conv := range c.conversations {
		if conv.Id == id {
			return true
		}
	}
	return false
}
