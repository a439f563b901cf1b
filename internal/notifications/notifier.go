// Package notifications publishes post events to Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"

	"github.com/redis/go-redis/v9"
)

// AuthorChannelPattern matches every per-author post channel.
const AuthorChannelPattern = "posts:author:*"

// AuthorChannel returns the channel followers of authorID listen on.
func AuthorChannel(authorID uint) string {
	return fmt.Sprintf("posts:author:%d", authorID)
}

// PostCreatedEvent is the payload published when a post is created.
type PostCreatedEvent struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"post_id"`
	AuthorID  uint      `json:"author_id"`
	Author    string    `json:"author"`
	GroupID   *uint     `json:"group_id,omitempty"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier publishes events through Redis pub/sub. A nil client makes it a no-op.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPostCreated announces post on its author's channel.
func (n *Notifier) PublishPostCreated(ctx context.Context, post *models.Post) error {
	if n.rdb == nil || post == nil {
		return nil
	}
	payload, err := json.Marshal(PostCreatedEvent{
		Type:      "post_created",
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Author:    post.Author.FullName(),
		GroupID:   post.GroupID,
		Preview:   post.Preview(),
		CreatedAt: post.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, AuthorChannel(post.AuthorID), payload).Err()
}

// StartPostSubscriber subscribes to every author channel and calls onEvent
// for each decoded message until ctx is cancelled.
func (n *Notifier) StartPostSubscriber(ctx context.Context, onEvent func(PostCreatedEvent)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, AuthorChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event PostCreatedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("dropping malformed post event",
						slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in post subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
