package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/geoplane/internal/pkg/metrics"
)

const usernameKey ctxKey = "username"

// RequireAuth rejects requests that do not carry a valid bearer token.
// On success the token subject is stored in Locals("username") and in the
// user context for downstream resolvers.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			metrics.AuthFailures.WithLabelValues("missing_header").Inc()
			return errUnauthorized(c, "missing authorization header")
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			metrics.AuthFailures.WithLabelValues("malformed_header").Inc()
			return errUnauthorized(c, "authorization header must be a bearer token")
		}

		username, err := deps.Auth.ValidateToken(token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid_token").Inc()
			return mapDomainError(c, err)
		}

		c.Locals("username", username)
		c.SetUserContext(context.WithValue(c.UserContext(), usernameKey, username))

		return c.Next()
	}
}
