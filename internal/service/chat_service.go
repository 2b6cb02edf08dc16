package service

import (
	"context"
	"fmt"
	"io"

	"ai-docchat-be/internal/apperr"
	"ai-docchat-be/internal/chat"
	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag/gate"
)

// IChatService defines the chat turn orchestration interface.
type IChatService interface {
	SendChat(ctx context.Context, sessionKey string, request *dto.SendChatRequest, onDelta func(fragment string)) (*dto.SendChatResponse, error)
	GetConversations(ctx context.Context, sessionKey string) ([]*dto.ConversationResponse, error)
	GetHistory(ctx context.Context, sessionKey string, conversationId string) ([]*dto.ChatHistoryResponse, error)
	NewConversation(ctx context.Context, sessionKey string) (*dto.NewConversationResponse, error)
	SelectConversation(ctx context.Context, sessionKey string, conversationId string) error
	UpdateTitle(ctx context.Context, sessionKey string, conversationId string, title string) error
	Refresh(ctx context.Context, sessionKey string) error
	GetThreshold() *dto.ThresholdResponse
	SetThreshold(value float64) *dto.ThresholdResponse
	GetRetrievalStatus(ctx context.Context) (*dto.RetrievalStatusResponse, error)
}

// chatService runs one chat turn end to end: lazy conversation creation,
// the retrieval gating decision, streamed generation, write-through
// persistence and the automatic title pass.
type chatService struct {
	sessions    contract.SessionStore
	convRepo    contract.ConversationRepository
	msgRepo     contract.MessageRepository
	chunkRepo   contract.ChunkRepository
	llmProvider llm.Provider
	gate        *gate.Gate
	bus         *events.Bus
	logger      logger.ILogger
	cfg         *config.Config
}

func NewChatService(
	sessions contract.SessionStore,
	convRepo contract.ConversationRepository,
	msgRepo contract.MessageRepository,
	chunkRepo contract.ChunkRepository,
	llmProvider llm.Provider,
	retrievalGate *gate.Gate,
	bus *events.Bus,
	log logger.ILogger,
	cfg *config.Config,
) IChatService {
	return &chatService{
		sessions:    sessions,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		chunkRepo:   chunkRepo,
		llmProvider: llmProvider,
		gate:        retrievalGate,
		bus:         bus,
		logger:      log,
		cfg:         cfg,
	}
}

// cacheFor rebuilds the per-session conversation cache, adopting any
// snapshot that survived the previous request cycle.
func (cs *chatService) cacheFor(ctx context.Context, sessionKey string) *chat.Cache {
	return chat.NewCache(
		ctx,
		sessionKey,
		cs.sessions,
		cs.convRepo,
		cs.msgRepo,
		cs.llmProvider,
		cs.logger,
		cs.cfg.Chat.TitleMaxLength,
	)
}

// SendChat runs one full turn. onDelta receives response fragments as they
// stream in; pass nil to collect silently. A generation failure discards any
// partial output and leaves only the user message persisted.
func (cs *chatService) SendChat(ctx context.Context, sessionKey string, request *dto.SendChatRequest, onDelta func(fragment string)) (*dto.SendChatResponse, error) {
	cache := cs.cacheFor(ctx, sessionKey)

	conversationId := request.ConversationId
	if conversationId == "" {
		conversationId = cache.CurrentId(ctx)
	} else {
		if cache.TitleByID(conversationId) == constant.UnknownConversationTitle {
			return nil, fmt.Errorf("%w: %s", apperr.ErrNotFound, conversationId)
		}
		cache.SetCurrent(ctx, conversationId)
	}

	history, err := cache.GetHistory(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	// First message in a locally started conversation: create the remote
	// record now so the message writes have a parent row.
	if len(history) == 0 {
		if err := cache.EnsurePersisted(ctx, conversationId); err != nil {
			cs.logger.Warn("chat.service", "lazy conversation create failed", map[string]interface{}{
				"conversation": conversationId,
				"error":        err.Error(),
			})
		}
	}

	userOutcome := cache.AppendMessage(ctx, conversationId, entity.Message{
		Role:    entity.RoleUser,
		Content: request.Message,
	})
	if !userOutcome.Applied {
		return nil, userOutcome.Err
	}

	eval, err := cs.gate.Evaluate(ctx, request.Message)
	if err != nil {
		// Retrieval is an enhancement; a dead index degrades to the
		// general-knowledge path instead of failing the turn.
		cs.logger.Warn("chat.service", "retrieval evaluation failed, answering without context", map[string]interface{}{
			"conversation": conversationId,
			"error":        err.Error(),
		})
		eval = &gate.Evaluation{}
	}

	answer, err := cs.generate(ctx, history, request.Message, eval, onDelta)
	if err != nil {
		return nil, err
	}

	provenance := provenanceFrom(eval)
	assistantOutcome := cache.AppendMessage(ctx, conversationId, entity.Message{
		Role:        entity.RoleAssistant,
		Content:     answer,
		IsRetrieved: eval.UsedRetrieval,
		Provenance:  provenance,
	})

	title := cs.maybeGenerateTitle(ctx, cache, sessionKey, conversationId)

	persisted := userOutcome.Persisted && assistantOutcome.Persisted
	if err := cs.bus.Publish(events.NewTurnCompleted(sessionKey, conversationId, eval.UsedRetrieval, len(provenance), persisted)); err != nil {
		cs.logger.Warn("chat.service", "turn event publish failed", map[string]interface{}{"error": err.Error()})
	}

	return &dto.SendChatResponse{
		ConversationId: conversationId,
		Answer:         answer,
		UsedRetrieval:  eval.UsedRetrieval,
		Sources:        cs.sourcesFrom(provenance),
		Persisted:      persisted,
		Title:          title,
	}, nil
}

// generate streams the model response, forwarding fragments to onDelta. The
// history passed in predates the current user message; the prompt carries it
// (wrapped in reference material when the gate opened).
func (cs *chatService) generate(ctx context.Context, history []entity.Message, question string, eval *gate.Evaluation, onDelta func(string)) (string, error) {
	system := constant.SystemPromptNormal
	prompt := question
	if eval.UsedRetrieval {
		system = constant.SystemPromptRetrieval
		prompt = eval.Prompt
	}

	turns := append(chat.ToLLMMessages(history), llm.Message{
		Role:    string(entity.RoleUser),
		Content: prompt,
	})

	stream, err := cs.llmProvider.ChatStream(ctx, system, turns,
		llm.WithTemperature(cs.cfg.Ai.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
	}

	if onDelta == nil {
		answer, err := llm.Collect(stream)
		if err != nil {
			return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		}
		return answer, nil
	}
	defer stream.Close()

	var answer string
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Partial output is garbage once the stream dies; the caller
			// must not see or persist it.
			return "", fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		}
		answer += fragment
		onDelta(fragment)
	}
	return answer, nil
}

// maybeGenerateTitle runs the best-effort title pass. Failures are logged
// and swallowed; a missing title never fails a successful turn.
func (cs *chatService) maybeGenerateTitle(ctx context.Context, cache *chat.Cache, sessionKey string, conversationId string) string {
	if !cache.ShouldGenerateTitle(ctx, conversationId) {
		return cache.TitleByID(conversationId)
	}

	title, err := cache.GenerateTitle(ctx, conversationId)
	if err != nil {
		cs.logger.Warn("chat.service", "title generation failed", map[string]interface{}{
			"conversation": conversationId,
			"error":        err.Error(),
		})
		return cache.TitleByID(conversationId)
	}

	outcome := cache.UpdateTitle(ctx, conversationId, title)
	if outcome.Err != nil {
		cs.logger.Warn("chat.service", "title update failed", map[string]interface{}{
			"conversation": conversationId,
			"error":        outcome.Err.Error(),
		})
	}
	if outcome.Applied {
		if err := cs.bus.Publish(events.NewTitleGenerated(sessionKey, conversationId, title)); err != nil {
			cs.logger.Warn("chat.service", "title event publish failed", map[string]interface{}{"error": err.Error()})
		}
		return title
	}
	return cache.TitleByID(conversationId)
}

func (cs *chatService) GetConversations(ctx context.Context, sessionKey string) ([]*dto.ConversationResponse, error) {
	cache := cs.cacheFor(ctx, sessionKey)

	conversations := cache.ListConversations()
	response := make([]*dto.ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		response = append(response, &dto.ConversationResponse{
			Id:        conv.Id,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) GetHistory(ctx context.Context, sessionKey string, conversationId string) ([]*dto.ChatHistoryResponse, error) {
	cache := cs.cacheFor(ctx, sessionKey)

	history, err := cache.GetHistory(ctx, conversationId)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.ChatHistoryResponse, 0, len(history))
	for _, msg := range history {
		response = append(response, &dto.ChatHistoryResponse{
			Id:          msg.Id,
			Role:        string(msg.Role),
			Content:     msg.Content,
			IsRetrieved: msg.IsRetrieved,
			Sources:     cs.sourcesFrom(msg.Provenance),
			CreatedAt:   msg.CreatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) NewConversation(ctx context.Context, sessionKey string) (*dto.NewConversationResponse, error) {
	cache := cs.cacheFor(ctx, sessionKey)
	conv := cache.StartConversation(ctx)
	return &dto.NewConversationResponse{Id: conv.Id, Title: conv.Title}, nil
}

func (cs *chatService) SelectConversation(ctx context.Context, sessionKey string, conversationId string) error {
	cache := cs.cacheFor(ctx, sessionKey)
	if cache.TitleByID(conversationId) == constant.UnknownConversationTitle {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, conversationId)
	}
	cache.SetCurrent(ctx, conversationId)
	return nil
}

func (cs *chatService) UpdateTitle(ctx context.Context, sessionKey string, conversationId string, title string) error {
	cache := cs.cacheFor(ctx, sessionKey)
	return cache.UpdateTitle(ctx, conversationId, title).Err
}

func (cs *chatService) Refresh(ctx context.Context, sessionKey string) error {
	return cs.cacheFor(ctx, sessionKey).Refresh(ctx)
}

func (cs *chatService) GetThreshold() *dto.ThresholdResponse {
	bounds := cs.gate.Bounds()
	return &dto.ThresholdResponse{
		Threshold: cs.gate.Threshold(),
		Min:       bounds.Min,
		Max:       bounds.Max,
		Step:      bounds.Step,
	}
}

func (cs *chatService) SetThreshold(value float64) *dto.ThresholdResponse {
	applied := cs.gate.SetThreshold(value)
	if err := cs.bus.Publish(events.NewThresholdChanged(applied)); err != nil {
		cs.logger.Warn("chat.service", "threshold event publish failed", map[string]interface{}{"error": err.Error()})
	}
	return cs.GetThreshold()
}

func (cs *chatService) GetRetrievalStatus(ctx context.Context) (*dto.RetrievalStatusResponse, error) {
	stats, err := cs.chunkRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: index stats: %v", apperr.ErrRemoteUnavailable, err)
	}
	return &dto.RetrievalStatusResponse{
		TotalChunks: stats.TotalChunks,
		BySource:    stats.BySource,
		Threshold:   cs.gate.Threshold(),
		TopK:        cs.cfg.Rag.TopK,
	}, nil
}

func provenanceFrom(eval *gate.Evaluation) []entity.ChunkRef {
	if !eval.UsedRetrieval {
		return nil
	}
	refs := make([]entity.ChunkRef, 0, len(eval.Hits))
	for _, hit := range eval.Hits {
		refs = append(refs, hit.ChunkRef())
	}
	return refs
}

// sourcesFrom decorates provenance with the configured external link for
// each source, when one exists.
func (cs *chatService) sourcesFrom(refs []entity.ChunkRef) []dto.SourceResponse {
	if len(refs) == 0 {
		return nil
	}
	sources := make([]dto.SourceResponse, 0, len(refs))
	for _, ref := range refs {
		sources = append(sources, dto.SourceResponse{
			ChunkId:  ref.ChunkID,
			Source:   ref.Source,
			Distance: ref.Distance,
			Link:     cs.cfg.Docs.SourceLinks[ref.Source],
		})
	}
	return sources
}
