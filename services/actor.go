package services

import (
	"github.com/gofiber/fiber/v2"
)

// Role is the capability attached to an actor. There is no ambient session
// state anywhere in the services — every mutating call receives the actor
// explicitly.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
	RoleSystem Role = "system"
)

// Actor identifies who is performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// SystemActor is used by background jobs (expiry sweep, outbox worker).
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// ActorFromCtx builds the actor from the gateway-injected locals set by
// middleware.UserContextMiddleware. Gateway roles use the upstream
// "ROLE_ADMIN"/"ROLE_PLAYER" convention.
func ActorFromCtx(c *fiber.Ctx) Actor {
	userID, _ := c.Locals("user_id").(string)
	roles, _ := c.Locals("user_roles").([]string)

	role := RolePlayer
	for _, r := range roles {
		if r == "ROLE_ADMIN" {
			role = RoleAdmin
			break
		}
	}
	return Actor{ID: userID, Role: role}
}
