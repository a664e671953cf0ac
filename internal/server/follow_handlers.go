package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mifthebest/hw05-final/internal/models"
)

// FollowIndex handles GET /follow/, the feed of followed authors.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.Followed(c.UserContext(), currentUser(c).ID, pageParam(c))
	if err != nil {
		return s.renderError(c, err)
	}

	return s.render(c, "posts/follow", fiber.Map{
		"Title": "Избранные авторы",
		"Page":  page,
	})
}

// Follow handles POST /profile/:username/follow/
func (s *Server) Follow(c *fiber.Ctx) error {
	username := c.Params("username")
	err := s.followService.Follow(c.UserContext(), currentUser(c).ID, username)
	switch {
	case err == nil, models.IsCode(err, models.ErrCodeValidation):
		// A self follow is silently ignored, the profile simply
		// renders without a follow button for its owner.
		return c.Redirect("/profile/"+username+"/", fiber.StatusFound)
	default:
		return s.renderError(c, err)
	}
}

// Unfollow handles POST /profile/:username/unfollow/
func (s *Server) Unfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if err := s.followService.Unfollow(c.UserContext(), currentUser(c).ID, username); err != nil {
		return s.renderError(c, err)
	}
	return c.Redirect("/profile/"+username+"/", fiber.StatusFound)
}
