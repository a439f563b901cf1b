package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRedis(t, nil)
}

func newTestEnvWithRedis(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Env:                  "test",
		Port:                 "0",
		JWTSecret:            testSecret,
		PostsPerPage:         10,
		IndexCacheTTLSeconds: 20,
		MediaRoot:            t.TempDir(),
		MaxUploadSizeMB:      1,
	}
	srv, err := NewServer(Deps{Config: cfg, DB: db, Redis: rdb})
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, cfg: cfg}
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(t, e.db.Create(g).Error)
	return g
}

var postClock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func (e *testEnv) post(t *testing.T, author *models.User, groupID *uint, text string) *models.Post {
	t.Helper()
	postClock = postClock.Add(time.Minute)
	p := &models.Post{Text: text, AuthorID: author.ID, GroupID: groupID, CreatedAt: postClock}
	require.NoError(t, e.db.Omit("Author", "Group").Create(p).Error)
	return p
}

func token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	userID      uint
}

func (e *testEnv) do(t *testing.T, r request) *http.Response {
	t.Helper()
	req := httptest.NewRequest(r.method, r.path, r.body)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.userID != 0 {
		req.Header.Set("Authorization", "Bearer "+token(t, r.userID))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type feedResponse struct {
	Kind string `json:"kind"`
	Page struct {
		Items []struct {
			ID       uint   `json:"id"`
			Text     string `json:"text"`
			AuthorID uint   `json:"author_id"`
		} `json:"items"`
		Number   int   `json:"number"`
		NumPages int   `json:"num_pages"`
		Count    int64 `json:"count"`
	} `json:"page"`
	Following bool `json:"following"`
}

func (f feedResponse) ids() []uint {
	ids := make([]uint, 0, len(f.Page.Items))
	for _, it := range f.Page.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

type postResponse struct {
	ID       uint   `json:"id"`
	Text     string `json:"text"`
	AuthorID uint   `json:"author_id"`
	GroupID  *uint  `json:"group_id"`
	Image    string `json:"image"`
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "small.gif")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pagePath(n int) string {
	return fmt.Sprintf("/api/posts?page=%d", n)
}
