// Package client is the HTTP client for the serene API, used by the
// command line tools. It implements feed.Store so a live feed session
// can run against a remote server.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/feed"
	"github.com/serene-app/serene-backend/internal/realtime"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// viewerHeader carries the viewer identity on every request
const viewerHeader = "X-Viewer-ID"

// Client talks to a serene API server
type Client struct {
	baseURL    string
	viewerID   string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the server at baseURL. viewerID may be
// empty for read-only use.
func New(baseURL, viewerID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		viewerID:   viewerID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.WithComponent("api-client"),
	}
}

// apiError is the server's error envelope
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.viewerID != "" {
		req.Header.Set(viewerHeader, c.viewerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiError
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, envelope.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// FetchFeed returns the annotated anonymous feed, newest first
func (c *Client) FetchFeed(ctx context.Context) ([]feed.Item, error) {
	var resp struct {
		Posts []feed.Item `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/feed", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// CreatePost publishes a new post
func (c *Client) CreatePost(ctx context.Context, content string, isAnonymous bool) (*feed.Item, error) {
	body := map[string]interface{}{"content": content, "is_anonymous": isAnonymous}
	var item feed.Item
	if err := c.do(ctx, http.MethodPost, "/api/posts", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertLike records the viewer's like on a post
func (c *Client) InsertLike(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/like", nil, nil)
}

// DeleteLike removes the viewer's like from a post
func (c *Client) DeleteLike(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+postID+"/like", nil, nil)
}

// FetchComments returns a post's comments, oldest first
func (c *Client) FetchComments(ctx context.Context, postID string) ([]feed.Comment, error) {
	var resp struct {
		Comments []feed.Comment `json:"comments"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/posts/"+postID+"/comments", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// InsertComment stores a comment and returns the created row
func (c *Client) InsertComment(ctx context.Context, postID, content string) (*feed.Comment, error) {
	body := map[string]string{"content": content}
	var comment feed.Comment
	if err := c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/comments", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Subscribe opens the server-sent event stream of post inserts. The
// returned channel closes when the stream drops; the session's
// subscriber loop handles reconnecting.
func (c *Client) Subscribe(ctx context.Context) (<-chan realtime.PostEvent, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/feed/stream", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.viewerID != "" {
		req.Header.Set(viewerHeader, c.viewerID)
	}

	// No client timeout on the stream; lifetime is bound to ctx
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("stream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("stream request: unexpected status %d", resp.StatusCode)
	}

	events := make(chan realtime.PostEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		c.readStream(ctx, resp.Body, events)
	}()

	unsubscribe := func() { resp.Body.Close() }
	return events, unsubscribe, nil
}

// readStream parses server-sent events off the wire until the
// connection drops or ctx is cancelled
func (c *Client) readStream(ctx context.Context, body io.Reader, events chan<- realtime.PostEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var event realtime.PostEvent
			if err := json.Unmarshal([]byte(data.String()), &event); err != nil {
				c.logger.Warn("Dropping malformed stream event", zap.Error(err))
			} else {
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
			data.Reset()
		}
	}
}

var _ feed.Store = (*Client)(nil)
