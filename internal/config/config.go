package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RagConfig
	Chat     ChatConfig
	Docs     DocsConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider    string // "openai" or "ollama"
	LLMModel       string // e.g. "gpt-4o-mini", "llama3"
	OpenAIAPIKey   string
	OllamaBaseURL  string
	EmbeddingModel string
	Temperature    float64
}

type RagConfig struct {
	Threshold     float64 // distance gate, lower = stricter matching
	ThresholdMin  float64
	ThresholdMax  float64
	ThresholdStep float64
	TopK          int
}

type ChatConfig struct {
	TitleMaxLength int
}

type DocsConfig struct {
	// SourceLinks maps a document source name to an external URL shown
	// alongside provenance. Format: "a.pdf=https://...;b.pdf=https://...".
	SourceLinks map[string]string
}

type SessionConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "openai"),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.1),
		},
		Rag: RagConfig{
			Threshold:     getEnvAsFloat("RAG_THRESHOLD", 1.2),
			ThresholdMin:  0.0,
			ThresholdMax:  2.0,
			ThresholdStep: 0.1,
			TopK:          getEnvAsInt("RAG_TOP_K", 3),
		},
		Chat: ChatConfig{
			TitleMaxLength: getEnvAsInt("CHAT_TITLE_MAX_LENGTH", 15),
		},
		Docs: DocsConfig{
			SourceLinks: getEnvAsMap("DOC_SOURCE_LINKS"),
		},
		Session: SessionConfig{
			Backend:  getEnv("SESSION_BACKEND", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(getEnv(key, ""), ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
