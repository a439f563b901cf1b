package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIndex_Pagination(t *testing.T) {
	e := newTestEnv(t)
	leo := e.user(t, "leo")

	var newest *models.Post
	for i := 0; i < 14; i++ {
		newest = e.post(t, leo, nil, fmt.Sprintf("post %d", i))
	}

	resp := e.do(t, request{method: http.MethodGet, path: "/api/posts"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[feedResponse](t, resp)
	assert.Equal(t, "index", first.Kind)
	assert.Len(t, first.Page.Items, 10)
	assert.Equal(t, newest.ID, first.Page.Items[0].ID)
	assert.Equal(t, int64(14), first.Page.Count)
	assert.Equal(t, 2, first.Page.NumPages)

	second := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: pagePath(2)}))
	assert.Len(t, second.Page.Items, 4)
	assert.Equal(t, 2, second.Page.Number)
}

func TestGetIndex_ServesCachedPageUntilCleared(t *testing.T) {
	e := newTestEnv(t)
	leo := e.user(t, "leo")
	doomed := e.post(t, leo, nil, "soon gone")

	resp := e.do(t, request{method: http.MethodGet, path: "/api/posts"})
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Contains(t, decode[feedResponse](t, resp).ids(), doomed.ID)

	del := e.do(t, request{method: http.MethodDelete, path: fmt.Sprintf("/api/posts/%d", doomed.ID), userID: leo.ID})
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	var remaining int64
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", doomed.ID).Count(&remaining).Error)
	require.Zero(t, remaining)

	stale := e.do(t, request{method: http.MethodGet, path: "/api/posts"})
	assert.Equal(t, "HIT", stale.Header.Get("X-Cache"))
	assert.Contains(t, decode[feedResponse](t, stale).ids(), doomed.ID)

	require.NoError(t, e.srv.PageCache().Clear(context.Background()))

	fresh := e.do(t, request{method: http.MethodGet, path: "/api/posts"})
	assert.Equal(t, "MISS", fresh.Header.Get("X-Cache"))
	assert.NotContains(t, decode[feedResponse](t, fresh).ids(), doomed.ID)
}

func TestGetGroupFeed(t *testing.T) {
	e := newTestEnv(t)
	leo := e.user(t, "leo")
	cats := e.group(t, "cats")
	inGroup := e.post(t, leo, &cats.ID, "meow")
	e.post(t, leo, nil, "no group")

	resp := e.do(t, request{method: http.MethodGet, path: "/api/group/cats"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decode[feedResponse](t, resp)
	assert.Equal(t, []uint{inGroup.ID}, feed.ids())

	missing := e.do(t, request{method: http.MethodGet, path: "/api/group/dogs"})
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestGetProfile_FollowingFlag(t *testing.T) {
	e := newTestEnv(t)
	leo := e.user(t, "leo")
	anna := e.user(t, "anna")
	e.post(t, leo, nil, "by leo")
	e.post(t, anna, nil, "by anna")

	anon := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: "/api/profile/leo"}))
	assert.Len(t, anon.Page.Items, 1)
	assert.False(t, anon.Following)

	follow := e.do(t, request{method: http.MethodPost, path: "/api/profile/leo/follow", userID: anna.ID})
	require.Equal(t, http.StatusOK, follow.StatusCode)

	viewer := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: "/api/profile/leo", userID: anna.ID}))
	assert.True(t, viewer.Following)

	self := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: "/api/profile/leo", userID: leo.ID}))
	assert.False(t, self.Following)

	missing := e.do(t, request{method: http.MethodGet, path: "/api/profile/nobody"})
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestGetFollowFeed(t *testing.T) {
	e := newTestEnv(t)
	reader := e.user(t, "reader")
	author := e.user(t, "author")
	stranger := e.user(t, "stranger")
	followed := e.post(t, author, nil, "followed")
	e.post(t, stranger, nil, "not followed")

	unauth := e.do(t, request{method: http.MethodGet, path: "/api/follow"})
	assert.Equal(t, http.StatusUnauthorized, unauth.StatusCode)

	empty := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: "/api/follow", userID: reader.ID}))
	assert.Empty(t, empty.Page.Items)
	assert.Equal(t, 1, empty.Page.NumPages)

	e.do(t, request{method: http.MethodPost, path: "/api/profile/author/follow", userID: reader.ID})

	feed := decode[feedResponse](t, e.do(t, request{method: http.MethodGet, path: "/api/follow", userID: reader.ID}))
	assert.Equal(t, "following", feed.Kind)
	assert.Equal(t, []uint{followed.ID}, feed.ids())
}

func TestListGroups(t *testing.T) {
	e := newTestEnv(t)
	e.group(t, "zebras")
	e.group(t, "ants")

	resp := e.do(t, request{method: http.MethodGet, path: "/api/groups"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groups := decode[[]models.Group](t, resp)
	require.Len(t, groups, 2)
	assert.Equal(t, "ants", groups[0].Slug)
}
