package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"scriptorium/internal/auth"
	"scriptorium/internal/middleware"
	"scriptorium/internal/models"

	"github.com/gofiber/fiber/v2"
)

const blacklistPrefix = "blacklist:"

var errNotAuthenticated = models.NewBusinessError("not authenticated")

// parseID extracts a positive int64 route parameter. Anything else is
// reported as NotFound, the same as an unknown route.
func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError()
	}
	return id, nil
}

// currentUserID is only valid behind AuthRequired.
func currentUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(middleware.LocalUserID).(int64)
	return id
}

// sessionToken reads the token from the session cookie, falling back to a
// Bearer header for API clients.
func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(auth.CookieName); token != "" {
		return token
	}
	parts := strings.Split(c.Get(fiber.HeaderAuthorization), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// authenticate verifies the session token of the request.
func (s *Server) authenticate(c *fiber.Ctx) (*auth.Claims, error) {
	token := sessionToken(c)
	if token == "" {
		return nil, errNotAuthenticated
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, errNotAuthenticated
	}

	if claims.ID != "" && s.redis != nil {
		revoked, err := s.redis.Exists(c.UserContext(), blacklistPrefix+claims.ID).Result()
		if err == nil && revoked > 0 {
			return nil, models.NewBusinessError("session has ended")
		}
	}
	return claims, nil
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := s.authenticate(c)
		if err != nil {
			return err
		}
		setUser(c, claims.UserID)
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, userID int64) {
	c.Locals(middleware.LocalUserID, userID)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

// revoke blacklists a session token until it would have expired anyway.
func (s *Server) revoke(ctx context.Context, claims *auth.Claims) error {
	if s.redis == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
}
