package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"safetyagent/internal/model"
)

const (
	// TenantIDHeader and UserIDHeader are set by the upstream gateway after authentication.
	TenantIDHeader = "X-Tenant-ID"
	UserIDHeader   = "X-User-ID"

	// ActorLocalKey is the key the caller identity is stored under in Fiber's context locals.
	ActorLocalKey = "actor"
)

// Actor reads the caller identity headers into a model.Actor.
// Missing headers leave the corresponding id nil; malformed ones fail with 400.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := optionalID(c.Get(TenantIDHeader))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+TenantIDHeader+" header")
		}
		userID, err := optionalID(c.Get(UserIDHeader))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid "+UserIDHeader+" header")
		}

		c.Locals(ActorLocalKey, model.Actor{TenantID: tenantID, UserID: userID})
		return c.Next()
	}
}

// ActorFromCtx returns the identity stored by Actor, or an anonymous actor.
func ActorFromCtx(c *fiber.Ctx) model.Actor {
	if a, ok := c.Locals(ActorLocalKey).(model.Actor); ok {
		return a
	}
	return model.Actor{}
}

func optionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, strconv.ErrSyntax
	}
	return &id, nil
}
