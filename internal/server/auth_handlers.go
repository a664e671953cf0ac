package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mifthebest/hw05-final/internal/middleware"
	"github.com/mifthebest/hw05-final/internal/service"
)

// SignupPage handles GET /auth/signup/
func (s *Server) SignupPage(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect("/", fiber.StatusFound)
	}
	return s.render(c, "users/signup", fiber.Map{"Title": "Регистрация"})
}

// Signup handles POST /auth/signup/. A successful registration signs
// the user in right away.
func (s *Server) Signup(c *fiber.Ctx) error {
	user, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	})
	if err != nil {
		return s.render(c, "users/signup", fiber.Map{
			"Title":    "Регистрация",
			"Username": c.FormValue("username"),
			"Email":    c.FormValue("email"),
			"Error":    errorMessage(err),
		})
	}

	if err := s.establishSession(c, user.ID); err != nil {
		return s.renderError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "user signed up", "user_id", user.ID)
	return c.Redirect("/", fiber.StatusFound)
}

// LoginPage handles GET /auth/login/
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		return c.Redirect(safeNext(c.Query("next")), fiber.StatusFound)
	}
	return s.render(c, "users/login", fiber.Map{
		"Title": "Войти",
		"Next":  c.Query("next"),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	user, err := s.authService.Login(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		return s.render(c, "users/login", fiber.Map{
			"Title":    "Войти",
			"Username": c.FormValue("username"),
			"Next":     c.Query("next"),
			"Error":    "Неверное имя пользователя или пароль",
		})
	}

	if err := s.establishSession(c, user.ID); err != nil {
		return s.renderError(c, err)
	}

	if c.FormValue("remember") != "" {
		token, err := s.authService.IssueRememberToken(user)
		if err != nil {
			return s.renderError(c, err)
		}
		c.Cookie(&fiber.Cookie{
			Name:     rememberCookieName,
			Value:    token,
			MaxAge:   int(service.RememberTokenTTL.Seconds()),
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)
	return c.Redirect(safeNext(c.Query("next")), fiber.StatusFound)
}

// Logout handles POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	if sess, err := s.sessions.Get(c); err == nil {
		if err := sess.Destroy(); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session destroy failed", "error", err)
		}
	}
	c.ClearCookie(rememberCookieName)
	return c.Redirect("/", fiber.StatusFound)
}

func (s *Server) establishSession(c *fiber.Ctx, userID uint) error {
	sess, err := s.sessions.Get(c)
	if err != nil {
		return err
	}
	// Fresh session id on privilege change.
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	return sess.Save()
}
