package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mifthebest/hw05-final/internal/middleware"
	"github.com/mifthebest/hw05-final/internal/models"
)

const currentUserKey = "currentUser"

// currentUser returns the signed-in user for this request, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	return user
}

// render executes a template inside the base layout, adding the
// signed-in user so the navigation bar can reflect auth state.
func (s *Server) render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["CurrentUser"]; !ok {
		data["CurrentUser"] = currentUser(c)
	}
	c.Type("html", "utf-8")
	return c.Render(name, data, "layouts/base")
}

// pageParam reads ?page=N. Anything unparseable counts as the first page.
func pageParam(c *fiber.Ctx) int {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// idParam reads a numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// cacheKey identifies a rendered page by path and query string, so
// /?page=2 is cached independently of /.
func cacheKey(c *fiber.Ctx) string {
	key := c.Path()
	if q := string(c.Request().URI().QueryString()); q != "" {
		key += "?" + q
	}
	return key
}

// safeNext validates a post-login redirect target. Only site-local
// paths are allowed, anything else falls back to the home page.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// allowed upload extensions, everything else is rejected before the
// file touches disk
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// saveImage stores an uploaded image under MEDIA_ROOT/posts with a
// generated name and returns the media-relative path ("posts/<name>").
func (s *Server) saveImage(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !imageExtensions[ext] {
		return "", models.NewValidationError("Unsupported image format")
	}

	dir := filepath.Join(s.config.MediaRoot, "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}

	name := uuid.NewString() + ext
	src, err := file.Open()
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", models.NewInternalError(err)
	}
	return "posts/" + name, nil
}

// renderError maps an application error onto the right page: missing
// resources get the 404 page, everything else a plain error status.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	if models.IsCode(err, models.ErrCodeNotFound) {
		return s.NotFound(c)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "handler error", "error", err, "path", c.Path())
	return c.SendStatus(fiber.StatusInternalServerError)
}

// NotFound renders the custom 404 page.
func (s *Server) NotFound(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Status(fiber.StatusNotFound).Render("core/404", fiber.Map{
		"Path":        c.Path(),
		"CurrentUser": currentUser(c),
	}, "layouts/base")
}

// loginRedirect sends an anonymous user to the login page, remembering
// where they wanted to go.
func loginRedirect(c *fiber.Ctx) error {
	return c.Redirect(fmt.Sprintf("/auth/login/?next=%s", url.QueryEscape(c.OriginalURL())), fiber.StatusFound)
}
