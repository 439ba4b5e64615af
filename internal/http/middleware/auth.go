package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/model"
)

const (
	// ActorLocalKey holds the model.Actor of the request.
	ActorLocalKey = "actor"

	LinkTokenHeader    = "X-Link-Token"
	LinkPasswordHeader = "X-Link-Password"
)

var errBadToken = errors.New("invalid bearer token")

// Auth resolves the caller into a model.Actor. A valid HS256 bearer token
// sets UserID from its sub claim; X-Link-Token and X-Link-Password carry a
// public link capability. Requests with neither continue as anonymous and
// the core decides whether that is enough. A malformed or expired bearer
// token is rejected with 401.
func Auth(secret []byte) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(c *fiber.Ctx) error {
		actor := model.Actor{
			LinkToken:    c.Get(LinkTokenHeader),
			LinkPassword: c.Get(LinkPasswordHeader),
		}

		if h := c.Get(fiber.HeaderAuthorization); h != "" {
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || len(secret) == 0 {
				return fiber.NewError(fiber.StatusUnauthorized, errBadToken.Error())
			}
			var claims jwt.RegisteredClaims
			if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, keyFunc); err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, errBadToken.Error())
			}
			if claims.Subject == "" {
				return fiber.NewError(fiber.StatusUnauthorized, errBadToken.Error())
			}
			actor.UserID = claims.Subject
		}

		c.Locals(ActorLocalKey, actor)
		return c.Next()
	}
}

// ActorFrom returns the actor stored by Auth, or an anonymous actor.
func ActorFrom(c *fiber.Ctx) model.Actor {
	a, _ := c.Locals(ActorLocalKey).(model.Actor)
	return a
}
