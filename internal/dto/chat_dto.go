package dto

import (
	"time"
)

type SendChatRequest struct {
	ConversationId string `json:"conversation_id"`
	Message        string `json:"message" validate:"required,min=1"`
}

type SourceResponse struct {
	ChunkId  string  `json:"chunk_id"`
	Source   string  `json:"source"`
	Distance float64 `json:"distance"`
	Link     string  `json:"link,omitempty"`
}

type SendChatResponse struct {
	ConversationId string           `json:"conversation_id"`
	Answer         string           `json:"answer"`
	UsedRetrieval  bool             `json:"used_retrieval"`
	Sources        []SourceResponse `json:"sources,omitempty"`
	Persisted      bool             `json:"persisted"`
	Title          string           `json:"title"`
}

type ConversationResponse struct {
	Id        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type ChatHistoryResponse struct {
	Id          string           `json:"id"`
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	IsRetrieved bool             `json:"is_retrieved"`
	Sources     []SourceResponse `json:"sources,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type NewConversationResponse struct {
	Id    string `json:"id"`
	Title string `json:"title"`
}

type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,min=1,max=120"`
}

type UpdateThresholdRequest struct {
	Threshold float64 `json:"threshold" validate:"min=0,max=2"`
}

type ThresholdResponse struct {
	Threshold float64 `json:"threshold"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Step      float64 `json:"step"`
}

type RetrievalStatusResponse struct {
	TotalChunks int64            `json:"total_chunks"`
	BySource    map[string]int64 `json:"by_source"`
	Threshold   float64          `json:"threshold"`
	TopK        int              `json:"top_k"`
}
