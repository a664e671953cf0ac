package server

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/mifthebest/hw05-final/internal/middleware"
	"github.com/mifthebest/hw05-final/internal/models"
)

const (
	sessionUserKey     = "user_id"
	rememberCookieName = "remember_token"
)

// LoadUser resolves the signed-in user for every request. The session
// cookie is authoritative; an expired session is restored from the
// "remember me" token when one is present.
func (s *Server) LoadUser(c *fiber.Ctx) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return c.Next()
	}

	if id, ok := sess.Get(sessionUserKey).(uint); ok && id != 0 {
		user, err := s.userRepo.GetByID(c.UserContext(), id)
		if err == nil {
			setCurrentUser(c, user)
		}
		return c.Next()
	}

	if token := c.Cookies(rememberCookieName); token != "" {
		user, err := s.authService.VerifyRememberToken(c.UserContext(), token)
		if err != nil {
			c.ClearCookie(rememberCookieName)
			return c.Next()
		}
		sess.Set(sessionUserKey, user.ID)
		if err := sess.Save(); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session save failed", "error", err)
		}
		setCurrentUser(c, user)
	}

	return c.Next()
}

// setCurrentUser records the user on the request and pushes the user id
// into the request context so log lines attribute to the user.
func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(currentUserKey, user)
	c.Locals("userID", user.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID))
}

// AuthRequired redirects anonymous users to the login page with the
// original URL in the next parameter.
func (s *Server) AuthRequired(c *fiber.Ctx) error {
	if currentUser(c) == nil {
		return loginRedirect(c)
	}
	return c.Next()
}
