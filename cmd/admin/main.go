// Package main provides admin utilities for yatube.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/notifications"
	"yatube/internal/repository"

	"github.com/gorilla/websocket"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin create-group <slug> <title> <description>  - Create a group")
	fmt.Println("  admin list-groups                                - List all groups")
	fmt.Println("  admin clear-index-cache                          - Drop cached index pages")
	fmt.Println("  admin issue-token <user_id> [ttl]                - Print a bearer token (ttl like 24h)")
	fmt.Println("  admin watch-posts                                - Print post events until interrupted")
	fmt.Println("  admin watch-feed <user_id> [host]                - Stream a user's following feed socket")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// issue-token and watch-feed need only the secret
	switch os.Args[1] {
	case "issue-token":
		issueToken(cfg, os.Args[2:])
		return
	case "watch-feed":
		watchFeed(cfg, os.Args[2:])
		return
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	switch os.Args[1] {
	case "create-group":
		if len(os.Args) < 5 {
			fmt.Println("Usage: admin create-group <slug> <title> <description>")
			os.Exit(1)
		}
		createGroup(ctx, rt, os.Args[2], os.Args[3], strings.Join(os.Args[4:], " "))
	case "list-groups":
		listGroups(ctx, rt)
	case "clear-index-cache":
		if err := rt.PageCache().Clear(ctx); err != nil {
			log.Fatalf("Failed to clear index cache: %v", err)
		}
		if rt.Redis == nil {
			fmt.Println("Redis is not configured; each server keeps its own cache until its TTL expires.")
			return
		}
		fmt.Println("Index page cache cleared.")
	case "watch-posts":
		watchPosts(rt)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func createGroup(ctx context.Context, rt *bootstrap.Runtime, slug, title, description string) {
	group := &models.Group{Slug: slug, Title: title, Description: description}
	if err := repository.NewGroupRepository(rt.DB).Create(ctx, group); err != nil {
		log.Fatalf("Failed to create group: %v", err)
	}
	fmt.Printf("Created group %q (ID: %d)\n", group.Slug, group.ID)
}

func listGroups(ctx context.Context, rt *bootstrap.Runtime) {
	groups, err := repository.NewGroupRepository(rt.DB).List(ctx)
	if err != nil {
		log.Fatalf("Failed to list groups: %v", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return
	}
	fmt.Printf("%-6s %-30s %s\n", "ID", "SLUG", "TITLE")
	for _, g := range groups {
		fmt.Printf("%-6d %-30s %s\n", g.ID, g.Slug, g.Title)
	}
}

func issueToken(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: admin issue-token <user_id> [ttl]")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		log.Fatalf("Invalid user ID: %s", args[0])
	}
	ttl := 24 * time.Hour
	if len(args) > 1 {
		if ttl, err = time.ParseDuration(args[1]); err != nil {
			log.Fatalf("Invalid ttl %q: %v", args[1], err)
		}
	}
	token, err := middleware.IssueToken(cfg.JWTSecret, uint(id), ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

func watchPosts(rt *bootstrap.Runtime) {
	if rt.Redis == nil {
		log.Fatal("watch-posts needs REDIS_URL")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := notifications.NewNotifier(rt.Redis).StartPostSubscriber(ctx, func(e notifications.PostCreatedEvent) {
		fmt.Printf("%s post=%d author=%d %q\n", e.CreatedAt.Format(time.RFC3339), e.PostID, e.AuthorID, e.Preview)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	fmt.Println("Watching for new posts, Ctrl+C to stop.")
	<-ctx.Done()
}

func watchFeed(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: admin watch-feed <user_id> [host]")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || id == 0 {
		log.Fatalf("Invalid user ID: %s", args[0])
	}
	host := "localhost:" + cfg.Port
	if len(args) > 1 {
		host = args[1]
	}
	token, err := middleware.IssueToken(cfg.JWTSecret, uint(id), time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/follow/ws"}
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", u.String(), err)
	}
	defer func() { _ = conn.Close() }()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	fmt.Printf("Watching the following feed of user %d on %s, Ctrl+C to stop.\n", id, host)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var e notifications.PostCreatedEvent
		if err := json.Unmarshal(message, &e); err != nil {
			fmt.Println(string(message))
			continue
		}
		fmt.Printf("%s post=%d by %s %q\n", e.CreatedAt.Format(time.RFC3339), e.PostID, e.Author, e.Preview)
	}
}
