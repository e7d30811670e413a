package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chess-tournament-system/handlers"
	"chess-tournament-system/middleware"
	"chess-tournament-system/models"
	"chess-tournament-system/services"
	"chess-tournament-system/utils"
	"chess-tournament-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — poster uploads
	})

	// 🔐 GLOBAL: only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := models.Migrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	playerServiceURL := mustEnv("PLAYER_SERVICE_URL")
	emailServiceURL := mustEnv("EMAIL_SERVICE_URL")
	serviceToken := mustEnv("CHESS_SERVICE_TOKEN")

	playerClient := services.NewPlayerServiceClient(playerServiceURL, serviceToken)
	emailClient := services.NewEmailServiceClient(emailServiceURL, serviceToken)
	dispatcher := &services.OutboxDispatcher{Players: playerClient, Mailer: emailClient}

	moderationService := services.NewModerationService(db, playerClient, dispatcher)
	tournamentService := services.NewTournamentService(db, playerClient, services.NewPairingService(), dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outboxWorker := workers.NewOutboxWorker(db, dispatcher.Dispatch)
	go outboxWorker.Start(ctx)

	syncWorker := workers.NewPlayerSyncWorker(db, playerServiceURL, serviceToken)
	go syncWorker.Start(ctx)

	sweepScheduler, err := moderationService.StartSweepScheduler(1 * time.Hour)
	if err != nil {
		log.Fatal("failed to start ban expiry scheduler:", err)
	}
	defer func() { _ = sweepScheduler.Shutdown() }()

	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupModerationRoutes(app, moderationService)

	go func() {
		if err := app.Listen(":8080"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:8080")
	log.Println("✅ Outbox worker running")
	log.Println("✅ Player sync worker running")
	log.Println("✅ Ban expiry sweep running (every 1h)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s environment variable not set", key)
	}
	return v
}
