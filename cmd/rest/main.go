package main

import (
	"context"
	"log"

	"ai-docchat-be/internal/bootstrap"
	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/server"
	"ai-docchat-be/internal/tracer"
	"ai-docchat-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Event Bridge...")
		if err := container.EventBridge.Run(context.Background()); err != nil {
			log.Printf("Background Event Bridge Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
