package server

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mifthebest/hw05-final/internal/cache"
	"github.com/mifthebest/hw05-final/internal/middleware"
	"github.com/mifthebest/hw05-final/internal/models"
	"github.com/mifthebest/hw05-final/internal/service"
)

// Index handles GET /. The rendered page is cached for a short window,
// so a post published moments ago may not appear until the cache rolls
// over.
func (s *Server) Index(c *fiber.Ctx) error {
	key := cacheKey(c)
	if body, ok := s.pageCache.Get(c.UserContext(), key); ok {
		c.Type("html", "utf-8")
		return c.Send(body)
	}

	page, err := s.feedService.Home(c.UserContext(), pageParam(c))
	if err != nil {
		return s.renderError(c, err)
	}

	if err := s.render(c, "posts/index", fiber.Map{
		"Title": "Последние обновления",
		"Page":  page,
	}); err != nil {
		return err
	}

	body := make([]byte, len(c.Response().Body()))
	copy(body, c.Response().Body())
	s.pageCache.Set(c.UserContext(), key, body, cache.HomePageTTL)
	return nil
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, err := s.groupRepo.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return s.renderError(c, err)
	}

	page, err := s.feedService.ByGroup(c.UserContext(), group.ID, pageParam(c))
	if err != nil {
		return s.renderError(c, err)
	}

	return s.render(c, "posts/group_list", fiber.Map{
		"Title": group.Title,
		"Group": group,
		"Page":  page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	author, err := s.userRepo.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return s.renderError(c, err)
	}

	page, err := s.feedService.ByAuthor(c.UserContext(), author.ID, pageParam(c))
	if err != nil {
		return s.renderError(c, err)
	}

	count, err := s.postRepo.CountByAuthor(c.UserContext(), author.ID)
	if err != nil {
		return s.renderError(c, err)
	}

	var following bool
	if user := currentUser(c); user != nil {
		following, err = s.followService.IsFollowing(c.UserContext(), user.ID, author.ID)
		if err != nil {
			return s.renderError(c, err)
		}
	}

	return s.render(c, "posts/profile", fiber.Map{
		"Title":     "Профиль " + author.Username,
		"Author":    author,
		"Page":      page,
		"PostCount": count,
		"Following": following,
	})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return s.NotFound(c)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.renderError(c, err)
	}

	comments, err := s.commentService.ListComments(c.UserContext(), post.ID)
	if err != nil {
		return s.renderError(c, err)
	}

	authorCount, err := s.postRepo.CountByAuthor(c.UserContext(), post.AuthorID)
	if err != nil {
		return s.renderError(c, err)
	}

	return s.render(c, "posts/post_detail", fiber.Map{
		"Title":           post.Preview(),
		"Post":            post,
		"Comments":        comments,
		"AuthorPostCount": authorCount,
	})
}

// PostCreatePage handles GET /create/
func (s *Server) PostCreatePage(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.Map{"Title": "Новая запись"})
}

// PostCreate handles POST /create/
func (s *Server) PostCreate(c *fiber.Ctx) error {
	user := currentUser(c)

	groupID, err := formGroupID(c)
	if err != nil {
		return s.renderPostForm(c, fiber.Map{
			"Title": "Новая запись",
			"Text":  c.FormValue("text"),
			"Error": "Выберите существующую группу",
		})
	}

	image, err := s.formImage(c)
	if err != nil {
		return s.renderPostForm(c, fiber.Map{
			"Title": "Новая запись",
			"Text":  c.FormValue("text"),
			"Error": errorMessage(err),
		})
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: user.ID,
		Text:     c.FormValue("text"),
		GroupID:  groupID,
		Image:    image,
	})
	if err != nil {
		return s.renderPostForm(c, fiber.Map{
			"Title": "Новая запись",
			"Text":  c.FormValue("text"),
			"Error": errorMessage(err),
		})
	}

	middleware.PostsCreated.Inc()
	middleware.Logger.InfoContext(c.UserContext(), "post created", "post_id", post.ID)
	return c.Redirect("/profile/"+user.Username+"/", fiber.StatusFound)
}

// PostEditPage handles GET /posts/:id/edit/. Only the author may edit;
// anyone else lands back on the post page.
func (s *Server) PostEditPage(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return s.NotFound(c)
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.renderError(c, err)
	}
	if post.AuthorID != currentUser(c).ID {
		return c.Redirect(fmt.Sprintf("/posts/%d/", post.ID), fiber.StatusFound)
	}

	var groupID uint
	if post.GroupID != nil {
		groupID = *post.GroupID
	}
	return s.renderPostForm(c, fiber.Map{
		"Title":   "Редактировать запись",
		"IsEdit":  true,
		"Text":    post.Text,
		"GroupID": groupID,
	})
}

// PostEdit handles POST /posts/:id/edit/
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return s.NotFound(c)
	}

	editForm := func(formErr error, groupID *uint) error {
		var groupIDValue uint
		if groupID != nil {
			groupIDValue = *groupID
		}
		return s.renderPostForm(c, fiber.Map{
			"Title":   "Редактировать запись",
			"IsEdit":  true,
			"Text":    c.FormValue("text"),
			"GroupID": groupIDValue,
			"Error":   errorMessage(formErr),
		})
	}

	existing, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.renderError(c, err)
	}
	// Authorship is checked before touching the upload so a rejected
	// request never writes a file under the media root.
	if existing.AuthorID != currentUser(c).ID {
		return c.Redirect(fmt.Sprintf("/posts/%d/", existing.ID), fiber.StatusFound)
	}

	groupID, err := formGroupID(c)
	if err != nil {
		return editForm(err, nil)
	}
	image, err := s.formImage(c)
	if err != nil {
		return editForm(err, groupID)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		PostID:   id,
		EditorID: currentUser(c).ID,
		Text:     c.FormValue("text"),
		GroupID:  groupID,
		Image:    image,
	})
	switch {
	case err == nil:
		return c.Redirect(fmt.Sprintf("/posts/%d/", post.ID), fiber.StatusFound)
	case models.IsCode(err, models.ErrCodeNotFound):
		return s.NotFound(c)
	case models.IsCode(err, models.ErrCodeUnauthorized):
		return c.Redirect(fmt.Sprintf("/posts/%d/", id), fiber.StatusFound)
	default:
		return editForm(err, groupID)
	}
}

// AddComment handles POST /posts/:id/comment/
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return s.NotFound(c)
	}

	_, err = s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:   id,
		AuthorID: currentUser(c).ID,
		Text:     c.FormValue("text"),
	})
	if err != nil {
		if models.IsCode(err, models.ErrCodeNotFound) {
			return s.NotFound(c)
		}
		// Invalid comments are dropped, the reader just sees the post again.
	} else {
		middleware.CommentsCreated.Inc()
	}

	return c.Redirect(fmt.Sprintf("/posts/%d/", id), fiber.StatusFound)
}

// renderPostForm renders the shared create/edit form with the group
// choices filled in.
func (s *Server) renderPostForm(c *fiber.Ctx, data fiber.Map) error {
	groups, err := s.groupRepo.List(c.UserContext())
	if err != nil {
		return s.renderError(c, err)
	}
	data["Groups"] = groups
	if _, ok := data["GroupID"]; !ok {
		data["GroupID"] = uint(0)
	}
	return s.render(c, "posts/post_create", data)
}

// formGroupID parses the optional group select. An empty value means no
// group.
func formGroupID(c *fiber.Ctx) (*uint, error) {
	raw := c.FormValue("group")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("Invalid group")
	}
	groupID := uint(id)
	return &groupID, nil
}

// formImage extracts the optional uploaded image and stores it. A
// missing file is not an error.
func (s *Server) formImage(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}
	return s.saveImage(file)
}

// errorMessage shows validation messages to the user and hides internals.
func errorMessage(err error) string {
	if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.ErrCodeValidation {
		return appErr.Message
	}
	return "Что-то пошло не так, попробуйте ещё раз"
}
