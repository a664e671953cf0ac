package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mifthebest/hw05-final/internal/config"
	"github.com/mifthebest/hw05-final/internal/database"
	"github.com/mifthebest/hw05-final/internal/models"
	"github.com/mifthebest/hw05-final/web"
)

const testPassword = "password123"

type testEnv struct {
	app   *fiber.App
	srv   *Server
	db    *gorm.DB
	redis *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Env:           "test",
		SessionSecret: "test-session-secret",
		MediaRoot:     t.TempDir(),
	}

	srv := NewServerWithDeps(cfg, db, client)
	app := fiber.New(fiber.Config{Views: web.NewEngine()})
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	return &testEnv{app: app, srv: srv, db: db, redis: mr}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createGroup(t *testing.T, title, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: title, Slug: slug, Description: "test group"}
	require.NoError(t, e.db.Create(group).Error)
	return group
}

func (e *testEnv) createPost(t *testing.T, author *models.User, text string) *models.Post {
	t.Helper()
	post := &models.Post{Text: text, AuthorID: author.ID, CreatedAt: time.Now()}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

// login signs the user in through the real login handler and returns
// the cookies a browser would carry afterwards.
func (e *testEnv) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	resp := e.postForm(t, "/auth/login/", url.Values{
		"username": {username},
		"password": {testPassword},
	}, nil)
	require.Equal(t, fiber.StatusFound, resp.StatusCode, "login should redirect")
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies, "login should set a session cookie")
	return cookies
}

func (e *testEnv) get(t *testing.T, path string, cookies []*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values, cookies []*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return string(body)
}
