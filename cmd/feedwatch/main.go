// feedwatch tails the anonymous community feed of a running serene
// server, printing posts as they arrive. Useful for smoke-testing the
// realtime push path end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/serene-app/serene-backend/internal/client"
	"github.com/serene-app/serene-backend/internal/feed"
	"github.com/serene-app/serene-backend/pkg/config"
	"github.com/serene-app/serene-backend/pkg/logging"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "serene API server URL")
	viewerID := flag.String("viewer", "", "viewer ID for like/comment annotations")
	interval := flag.Duration("interval", 2*time.Second, "how often to redraw the feed")
	flag.Parse()

	if err := logging.InitLogger(&config.LoggingConfig{Level: "WARN", Format: "text"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	api := client.New(*serverURL, *viewerID)
	session := feed.NewSession(api, *viewerID, feed.DefaultSessionOptions())

	if err := session.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load feed from %s: %v\n", *serverURL, err)
		os.Exit(1)
	}
	session.Start(ctx)
	defer session.Close()

	go func() {
		for notice := range session.Notices() {
			fmt.Printf("* %s\n", notice.Message)
		}
	}()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n\n", *serverURL)
	printFeed(session)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nBye.")
			return
		case <-ticker.C:
			printFeed(session)
		}
	}
}

var lastPrinted string

// printFeed redraws the feed when its top post changes
func printFeed(session *feed.Session) {
	posts := session.Posts()
	if len(posts) == 0 {
		return
	}
	if posts[0].ID == lastPrinted {
		return
	}
	lastPrinted = posts[0].ID

	now := time.Now()
	for _, post := range posts {
		fmt.Printf("[%s] %s\n", feed.FormatTimeAgo(post.CreatedAt, now), post.Content)
		fmt.Printf("    %d likes, %d comments\n", post.LikeCount, post.CommentCount)
	}
	fmt.Println()
}
