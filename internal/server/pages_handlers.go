package server

import "github.com/gofiber/fiber/v2"

// AboutAuthor handles GET /about/author/
func (s *Server) AboutAuthor(c *fiber.Ctx) error {
	return s.render(c, "about/author", fiber.Map{"Title": "Об авторе"})
}

// AboutTech handles GET /about/tech/
func (s *Server) AboutTech(c *fiber.Ctx) error {
	return s.render(c, "about/tech", fiber.Map{"Title": "Технологии"})
}
