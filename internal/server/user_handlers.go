package server

import (
	"log/slog"

	"scriptorium/internal/auth"
	"scriptorium/internal/featureflags"
	"scriptorium/internal/middleware"
	"scriptorium/internal/models"

	"github.com/gofiber/fiber/v2"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /user/register
// @Summary Create an account and start a session
// @Tags users
// @Accept json
// @Produce json
// @Param request body credentials true "Credentials"
// @Success 200 {object} models.Envelope[models.UserInfo]
// @Failure 400 {object} models.Envelope[any]
// @Router /user/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	if !s.featureFlags.Enabled(featureflags.OpenRegistration, 0) {
		return models.NewBusinessError("registration is closed")
	}

	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return &models.BodyError{Err: err}
	}

	user, err := s.accounts.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return s.startSession(c, user)
}

// Login handles POST /user/login
// @Summary Start a session
// @Tags users
// @Accept json
// @Produce json
// @Param request body credentials true "Credentials"
// @Success 200 {object} models.Envelope[models.UserInfo]
// @Failure 400 {object} models.Envelope[any]
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return &models.BodyError{Err: err}
	}

	user, err := s.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return s.startSession(c, user)
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	c.Set(fiber.HeaderSetCookie, auth.BuildCookie(token))
	return models.RespondWithData(c, user.ToInfo())
}

// Logout handles POST /user/logout
// The cookie is always cleared; a valid token is also revoked.
// @Summary End the session
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope[bool]
// @Router /user/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, err := s.authenticate(c); err == nil {
		if err := s.revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation failed",
				slog.String("error", err.Error()))
		}
	}

	c.Set(fiber.HeaderSetCookie, auth.ExpiredCookie())
	return models.RespondWithData(c, true)
}

// Me handles GET /user/me
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope[models.UserInfo]
// @Failure 400 {object} models.Envelope[any]
// @Router /user/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.accounts.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}
	return models.RespondWithData(c, user.ToInfo())
}

// Features handles GET /user/features
// Flags are evaluated for the signed-in user, so percentage rollouts differ
// between accounts.
// @Summary Feature flags for the current user
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope[map[string]bool]
// @Failure 400 {object} models.Envelope[any]
// @Router /user/features [get]
func (s *Server) Features(c *fiber.Ctx) error {
	return models.RespondWithData(c, s.featureFlags.Snapshot(currentUserID(c)))
}
