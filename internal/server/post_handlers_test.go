package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mifthebest/hw05-final/internal/cache"
	"github.com/mifthebest/hw05-final/internal/models"
)

func TestIndexDisplaysPosts(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	env.createPost(t, author, "Первый пост в ленте")

	resp := env.get(t, "/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Первый пост в ленте")
	assert.Contains(t, body, "leo")
}

func TestIndexPagination(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	for i := 0; i < 13; i++ {
		post := &models.Post{
			Text:      fmt.Sprintf("post number %d", i),
			AuthorID:  author.ID,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, env.db.Create(post).Error)
	}

	body := readBody(t, env.get(t, "/", nil))
	assert.Equal(t, 10, strings.Count(body, "post-card"), "first page shows ten posts")

	body = readBody(t, env.get(t, "/?page=2", nil))
	assert.Equal(t, 3, strings.Count(body, "post-card"), "second page shows the remainder")
}

func TestIndexCacheServesStalePageWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	env.createPost(t, author, "cached post")

	first := readBody(t, env.get(t, "/", nil))
	require.Contains(t, first, "cached post")

	env.createPost(t, author, "fresh post")

	second := readBody(t, env.get(t, "/", nil))
	assert.Equal(t, first, second, "within the TTL the cached bytes are served unchanged")
	assert.NotContains(t, second, "fresh post")

	env.redis.FastForward(cache.HomePageTTL + time.Second)

	third := readBody(t, env.get(t, "/", nil))
	assert.Contains(t, third, "fresh post")
}

func TestIndexCacheKeepsDeletedPostWithinTTL(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	post := env.createPost(t, author, "doomed post")

	first := readBody(t, env.get(t, "/", nil))
	require.Contains(t, first, "doomed post")

	require.NoError(t, env.db.Delete(&models.Post{}, post.ID).Error)

	second := readBody(t, env.get(t, "/", nil))
	assert.Equal(t, first, second, "the deleted post still renders from cache")

	env.redis.FastForward(cache.HomePageTTL + time.Second)

	third := readBody(t, env.get(t, "/", nil))
	assert.NotContains(t, third, "doomed post")
}

func TestGroupPage(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	group := env.createGroup(t, "Коты", "cats")

	inGroup := &models.Post{Text: "про котов", AuthorID: author.ID, GroupID: &group.ID}
	require.NoError(t, env.db.Create(inGroup).Error)
	env.createPost(t, author, "без группы")

	resp := env.get(t, "/group/cats/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "Коты")
	assert.Contains(t, body, "про котов")
	assert.NotContains(t, body, "без группы")
}

func TestGroupPageUnknownSlug(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/group/no-such-group/", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Custom 404")
}

func TestUnexistingPage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/unexisting-page/", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "Custom 404")
}

func TestProfilePage(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	other := env.createUser(t, "max")
	env.createPost(t, author, "запись Льва")
	env.createPost(t, other, "запись Макса")

	resp := env.get(t, "/profile/leo/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, "запись Льва")
	assert.NotContains(t, body, "запись Макса")
	assert.Contains(t, body, "Всего записей: 1")
}

func TestPostDetail(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	post := env.createPost(t, author, "Очень длинный текст поста, который не помещается в заголовок")
	comment := &models.Comment{Text: "первый комментарий", PostID: post.ID, AuthorID: author.ID}
	require.NoError(t, env.db.Create(comment).Error)

	resp := env.get(t, fmt.Sprintf("/posts/%d/", post.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	assert.Contains(t, body, post.Text)
	assert.Contains(t, body, "первый комментарий")
}

func TestPostDetailUnknownID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/posts/12345/", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.get(t, "/posts/abc/", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/create/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next="+url.QueryEscape("/create/"), resp.Header.Get("Location"))
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "leo")
	group := env.createGroup(t, "Коты", "cats")
	cookies := env.login(t, "leo")

	resp := env.postForm(t, "/create/", url.Values{
		"text":  {"новая запись"},
		"group": {fmt.Sprintf("%d", group.ID)},
	}, cookies)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile/leo/", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, env.db.First(&post, "text = ?", "новая запись").Error)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
}

func TestCreatePostEmptyText(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "leo")
	cookies := env.login(t, "leo")

	resp := env.postForm(t, "/create/", url.Values{"text": {"   "}}, cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode, "invalid form re-renders")
	assert.Contains(t, readBody(t, resp), "alert-danger")

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePostWithImage(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "leo")
	cookies := env.login(t, "leo")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("text", "пост с картинкой"))
	part, err := writer.CreateFormFile("image", "cover.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfakeimagedata"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/create/", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, env.db.First(&post, "text = ?", "пост с картинкой").Error)
	require.True(t, strings.HasPrefix(post.Image, "posts/"), "image path is media-relative, got %q", post.Image)

	_, err = os.Stat(filepath.Join(env.srv.config.MediaRoot, post.Image))
	assert.NoError(t, err, "uploaded file exists under the media root")
}

func TestEditPostByNonAuthor(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	env.createUser(t, "max")
	post := env.createPost(t, author, "оригинальный текст")
	cookies := env.login(t, "max")

	resp := env.get(t, fmt.Sprintf("/posts/%d/edit/", post.ID), cookies)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	resp = env.postForm(t, fmt.Sprintf("/posts/%d/edit/", post.ID), url.Values{
		"text": {"чужая правка"},
	}, cookies)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	var unchanged models.Post
	require.NoError(t, env.db.First(&unchanged, post.ID).Error)
	assert.Equal(t, "оригинальный текст", unchanged.Text)
}

func TestEditPostByNonAuthorDropsUpload(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	env.createUser(t, "max")
	post := env.createPost(t, author, "оригинальный текст")
	cookies := env.login(t, "max")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("text", "чужая правка"))
	part, err := writer.CreateFormFile("image", "sneaky.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfakeimagedata"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/posts/%d/edit/", post.ID), &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	var unchanged models.Post
	require.NoError(t, env.db.First(&unchanged, post.ID).Error)
	assert.Equal(t, "оригинальный текст", unchanged.Text)
	assert.Empty(t, unchanged.Image)

	// The rejected upload never reaches the media root.
	entries, err := os.ReadDir(filepath.Join(env.srv.config.MediaRoot, "posts"))
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}

func TestEditPostByAuthor(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	post := env.createPost(t, author, "оригинальный текст")
	cookies := env.login(t, "leo")

	resp := env.postForm(t, fmt.Sprintf("/posts/%d/edit/", post.ID), url.Values{
		"text": {"исправленный текст"},
	}, cookies)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	var updated models.Post
	require.NoError(t, env.db.First(&updated, post.ID).Error)
	assert.Equal(t, "исправленный текст", updated.Text)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	post := env.createPost(t, author, "пост с комментариями")
	cookies := env.login(t, "leo")

	resp := env.postForm(t, fmt.Sprintf("/posts/%d/comment/", post.ID), url.Values{
		"text": {"отличный пост"},
	}, cookies)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), resp.Header.Get("Location"))

	var count int64
	require.NoError(t, env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddCommentAnonymous(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "leo")
	post := env.createPost(t, author, "пост с комментариями")

	resp := env.postForm(t, fmt.Sprintf("/posts/%d/comment/", post.ID), url.Values{
		"text": {"аноним"},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/auth/login/")

	var count int64
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count, "anonymous comments are not persisted")
}

func TestAboutPages(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/about/author/", "/about/tech/"} {
		resp := env.get(t, path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health/live", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.get(t, "/health/ready", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
