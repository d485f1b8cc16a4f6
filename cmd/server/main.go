package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/kirbacho/DandyHacks-2025/internal/config"
	"github.com/kirbacho/DandyHacks-2025/internal/database"
	"github.com/kirbacho/DandyHacks-2025/internal/handlers"
	"github.com/kirbacho/DandyHacks-2025/internal/middleware"
	"github.com/kirbacho/DandyHacks-2025/internal/repository"
	"github.com/kirbacho/DandyHacks-2025/internal/router"
	"github.com/kirbacho/DandyHacks-2025/internal/services"
	"github.com/kirbacho/DandyHacks-2025/internal/websocket"
	"github.com/kirbacho/DandyHacks-2025/internal/worker"
)

func main() {
	app := &cli.App{
		Name:  "syllabus-sync",
		Usage: "turn a syllabus into a calendar: extract deadlines, plan study sessions, sync to Google Calendar",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the API server",
				Action: func(*cli.Context) error { return serve() },
			},
			{
				Name:   "models",
				Usage:  "list Gemini models available to the configured API key",
				Action: func(c *cli.Context) error { return listModels(c.Context) },
			},
		},
		// Bare invocation serves, so `go run ./cmd/server` just works.
		Action: func(*cli.Context) error { return serve() },
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve() error {
	log.Println("🚀 Starting Syllabus Sync...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	tokenRepo := repository.NewTokenRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	session := middleware.NewSession(cfg.SessionSecret)
	fileExtractService := services.NewFileExtractService()
	calendarService := services.NewCalendarService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.OAuthRedirectURL,
		cfg.CalendarTimezone,
	)

	// ──── Initialize Handlers ────
	extractionTTL := time.Duration(cfg.ExtractionCacheTTLHours) * time.Hour
	syllabusHandler := handlers.NewSyllabusHandler(fileExtractService, geminiService, redisClients.Cache, jobRepo, extractionTTL)
	sessionsHandler := handlers.NewSessionsHandler(geminiService, redisClients.Cache)
	calendarHandler := handlers.NewCalendarHandler(calendarService, tokenRepo)
	oauthHandler := handlers.NewOAuthHandler(calendarService, tokenRepo, redisClients.Cache, cfg.FrontendURL)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Cache, geminiService, jobRepo, 5)
	workerPool.Start()
	log.Println("✓ Worker pool started (5 goroutines)")

	janitor := services.NewTokenJanitor(tokenRepo)
	janitor.Start()
	log.Println("✓ Token janitor started")

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		session,
		syllabusHandler,
		sessionsHandler,
		calendarHandler,
		oauthHandler,
		jobHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		janitor.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Syllabus Sync ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	return nil
}

// listModels only needs the Gemini key, so it reads the environment directly
// instead of going through config.Load and its required-variable checks.
func listModels(ctx context.Context) error {
	godotenv.Load()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}

	gemini, err := services.NewGeminiService(apiKey, 1)
	if err != nil {
		return err
	}
	defer gemini.Close()

	names, err := gemini.ListModels(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Models supporting generateContent (%d):\n", len(names))
	for _, name := range names {
		fmt.Println("  " + name)
	}
	return nil
}
