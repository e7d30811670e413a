package handlers

import (
	"chess-tournament-system/middleware"
	"chess-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupModerationRoutes(app *fiber.App, moderationService *services.ModerationService) {
	// 🔐 Admin moderation — role is enforced inside the endpoints.
	admin := app.Group("/admin", middleware.UserContextMiddleware())

	admin.Post("/blacklist", moderationService.BlacklistPlayer)
	admin.Post("/whitelist", moderationService.WhitelistPlayer)
	admin.Get("/blacklist", moderationService.GetBlacklist)
	admin.Get("/blacklist/:player_id/history", moderationService.GetBanHistory)

	admin.Get("/players/search", moderationService.SearchPlayers)
}
