package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"yatube/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type followersStub struct {
	byAuthor map[uint][]uint
	err      error
}

func (s *followersStub) FollowerIDs(_ context.Context, authorID uint) ([]uint, error) {
	return s.byAuthor[authorID], s.err
}

func receive(t *testing.T, c *Client) PostCreatedEvent {
	t.Helper()
	select {
	case msg := <-c.Send:
		var event PostCreatedEvent
		require.NoError(t, json.Unmarshal(msg, &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return PostCreatedEvent{}
}

func TestFeedHub_DeliversOnlyToFollowers(t *testing.T) {
	hub := NewFeedHub(&followersStub{byAuthor: map[uint][]uint{1: {10, 11}}})

	follower, err := hub.Register(10, nil)
	require.NoError(t, err)
	secondTab, err := hub.Register(10, nil)
	require.NoError(t, err)
	stranger, err := hub.Register(12, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Deliver(context.Background(), PostCreatedEvent{Type: "post_created", PostID: 5, AuthorID: 1}))

	assert.Equal(t, uint(5), receive(t, follower).PostID)
	assert.Equal(t, uint(5), receive(t, secondTab).PostID)
	assert.Empty(t, stranger.Send)
}

func TestFeedHub_UnregisterClosesSend(t *testing.T) {
	hub := NewFeedHub(&followersStub{})
	client, err := hub.Register(3, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Connected(3))

	hub.UnregisterClient(client)
	hub.UnregisterClient(client)
	assert.Equal(t, 0, hub.Connected(3))
	_, open := <-client.Send
	assert.False(t, open)
}

func TestFeedHub_PerUserLimit(t *testing.T) {
	hub := NewFeedHub(&followersStub{})
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(7, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(7, nil)
	assert.Error(t, err)
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Connected(7))
}

func TestFeedHub_DeliverErrors(t *testing.T) {
	hub := NewFeedHub(&followersStub{err: errors.New("graph down")})

	// Nobody connected: no lookup happens.
	assert.NoError(t, hub.Deliver(context.Background(), PostCreatedEvent{AuthorID: 1}))

	_, err := hub.Register(2, nil)
	require.NoError(t, err)
	assert.Error(t, hub.Deliver(context.Background(), PostCreatedEvent{AuthorID: 1}))
}

func TestFeedHub_StartWiring(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewFeedHub(&followersStub{byAuthor: map[uint][]uint{4: {9}}})
	client, err := hub.Register(9, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishPostCreated(ctx, &models.Post{ID: 21, AuthorID: 4, Text: "fresh"}))

	event := receive(t, client)
	assert.Equal(t, uint(21), event.PostID)
	assert.Equal(t, "fresh", event.Preview)
}
