package handlers

import (
	"chess-tournament-system/middleware"
	"chess-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// 🔓 Public browsing
	app.Get("/tournaments/upcoming", tournamentService.GetUpcomingTournaments)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/tournaments", tournamentService.CreateTournamentEndpoint)
	secured.Get("/tournaments", tournamentService.GetAllTournaments)
	secured.Get("/tournaments/:id", tournamentService.GetTournamentByID)

	// Lifecycle transitions (owning admin only)
	secured.Post("/tournaments/:id/start", tournamentService.StartTournamentEndpoint)
	secured.Post("/tournaments/:id/next-round", tournamentService.AdvanceRoundEndpoint)
	secured.Post("/tournaments/:id/complete", tournamentService.CompleteTournamentEndpoint)

	// Registration
	secured.Post("/tournaments/:id/signup", tournamentService.SignUpEndpoint)
	secured.Post("/tournaments/:id/withdraw", tournamentService.WithdrawEndpoint)
	secured.Delete("/tournaments/:id/players/:player_id", tournamentService.RemovePlayerEndpoint)

	secured.Get("/tournaments/:id/players", tournamentService.GetParticipantsEndpoint)
	secured.Get("/tournaments/:id/matches", tournamentService.GetMatchesEndpoint)
}
