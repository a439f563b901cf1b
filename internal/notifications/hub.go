package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"yatube/internal/middleware"
	"yatube/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// FollowerLister resolves the followers of an author.
type FollowerLister interface {
	FollowerIDs(ctx context.Context, authorID uint) ([]uint, error)
}

// FeedHub maps userID -> open connections and fans post events out to the
// author's current followers.
type FeedHub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	followers  FollowerLister
}

func NewFeedHub(followers FollowerLister) *FeedHub {
	return &FeedHub{
		conns:     make(map[uint]map[*Client]struct{}),
		followers: followers,
	}
}

// Register adds a connection for userID. It fails once the per-user or global limit is hit.
func (h *FeedHub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.FeedSocketConnections.Inc()
	return client, nil
}

func (h *FeedHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
	h.totalConns--
	close(client.Send)
	observability.FeedSocketConnections.Dec()
}

// Connected reports how many connections userID has open.
func (h *FeedHub) Connected(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Deliver sends event to every open connection of the author's followers.
// Followers are resolved per event, so a new follow takes effect immediately.
func (h *FeedHub) Deliver(ctx context.Context, event PostCreatedEvent) error {
	h.mu.RLock()
	idle := h.totalConns == 0
	h.mu.RUnlock()
	if idle {
		return nil
	}

	followers, err := h.followers.FollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("resolve followers of %d: %w", event.AuthorID, err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range followers {
		for c := range h.conns[id] {
			c.trySend(payload)
		}
	}
	return nil
}

// StartWiring subscribes the hub to post events published through n.
func (h *FeedHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPostSubscriber(ctx, func(event PostCreatedEvent) {
		if err := h.Deliver(ctx, event); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to deliver post event",
				slog.Uint64("post_id", uint64(event.PostID)), slog.String("error", err.Error()))
		}
	})
}

// Shutdown unregisters every client. Closing Send makes each WritePump send
// a close frame and drop its connection.
func (h *FeedHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.conns {
		for client := range clients {
			close(client.Send)
			observability.FeedSocketConnections.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
