package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/implementation"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepositories(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDB(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	sqlDB, _ := gormDB.DB()
	require.NoError(t, sqlDB.Ping())

	ctx := context.Background()
	convRepo := implementation.NewConversationRepository(gormDB)
	msgRepo := implementation.NewMessageRepository(gormDB)
	chunkRepo := implementation.NewChunkRepository(gormDB)

	t.Run("Conversation round trip", func(t *testing.T) {
		conv := &entity.Conversation{Title: "integration test"}
		require.NoError(t, convRepo.Create(ctx, conv))
		require.NotEmpty(t, conv.Id)
		defer convRepo.Delete(ctx, conv.Id)

		found, err := convRepo.FindOne(ctx, specification.ByID{ID: conv.Id})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "integration test", found.Title)

		require.NoError(t, convRepo.UpdateTitle(ctx, conv.Id, "renamed"))
		found, err = convRepo.FindOne(ctx, specification.ByID{ID: conv.Id})
		require.NoError(t, err)
		assert.Equal(t, "renamed", found.Title)
	})

	t.Run("Message persistence with provenance", func(t *testing.T) {
		conv := &entity.Conversation{Title: "messages"}
		require.NoError(t, convRepo.Create(ctx, conv))
		defer convRepo.Delete(ctx, conv.Id)

		msg := &entity.Message{
			ConversationId: conv.Id,
			Role:           entity.RoleAssistant,
			Content:        "grounded answer",
			IsRetrieved:    true,
			Provenance: []entity.ChunkRef{
				{ChunkID: "guide.pdf_1_0", Distance: 0.7, Source: "guide.pdf"},
			},
		}
		require.NoError(t, msgRepo.Create(ctx, msg))

		loaded, err := msgRepo.FindAll(ctx,
			specification.ByConversationID{ConversationID: conv.Id},
			specification.OrderBy{Field: "created_at", Desc: false},
		)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.True(t, loaded[0].IsRetrieved)
		require.Len(t, loaded[0].Provenance, 1)
		assert.Equal(t, "guide.pdf_1_0", loaded[0].Provenance[0].ChunkID)
	})

	t.Run("Chunk index stats", func(t *testing.T) {
		stats, err := chunkRepo.Stats(ctx)
		require.NoError(t, err)
		t.Logf("Chunk count: %d", stats.TotalChunks)
	})
}
