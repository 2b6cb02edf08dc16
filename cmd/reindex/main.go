package main

import (
	"context"
	"flag"
	"log"
	"os"

	"ai-docchat-be/internal/repository/implementation"
	"ai-docchat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// reindex inspects the document chunk index and, with --clear, wipes it so
// an external ingestion run can rebuild embeddings from scratch.
func main() {
	wipe := flag.Bool("clear", false, "delete all chunks before reporting")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDB(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	chunkRepo := implementation.NewChunkRepository(db)

	if *wipe {
		color.Yellow("Clearing document chunk index...")
		if err := chunkRepo.Clear(ctx); err != nil {
			color.Red("Failed to clear index: %v", err)
			os.Exit(1)
		}
		color.Green("Index cleared")
	}

	stats, err := chunkRepo.Stats(ctx)
	if err != nil {
		color.Red("Failed to read index stats: %v", err)
		os.Exit(1)
	}

	color.Cyan("Document chunk index")
	color.White("  total chunks: %d", stats.TotalChunks)
	for source, count := range stats.BySource {
		color.White("  %-40s %d", source, count)
	}

	if stats.TotalChunks == 0 {
		color.Yellow("Index is empty; run the ingestion job to populate it")
	}
}
