package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/feed"
	"github.com/serene-app/serene-backend/internal/realtime"
	"github.com/serene-app/serene-backend/pkg/logging"
)

// FeedAPI serves the anonymous community feed
type FeedAPI struct {
	service *feed.Service
	broker  realtime.Broker
	logger  *zap.Logger
}

// NewFeedAPI creates a new feed API
func NewFeedAPI(service *feed.Service, broker realtime.Broker) *FeedAPI {
	return &FeedAPI{
		service: service,
		broker:  broker,
		logger:  logging.WithComponent("feed-api"),
	}
}

// GetFeed handles GET /api/feed
func (a *FeedAPI) GetFeed(c *gin.Context) {
	items, err := a.service.Load(c.Request.Context(), ViewerID(c))
	if err != nil {
		a.logger.Error("Failed to load feed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// StreamFeed handles GET /api/feed/stream: a server-sent event stream
// of post-insert notifications. One subscription per connection, torn
// down when the client goes away.
func (a *FeedAPI) StreamFeed(c *gin.Context) {
	events, unsubscribe, err := a.broker.Subscribe(c.Request.Context())
	if err != nil {
		a.logger.Error("Failed to open feed subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("post", event)
			return true
		}
	})
}

type createPostRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// CreatePost handles POST /api/posts
func (a *FeedAPI) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := a.service.CreatePost(c.Request.Context(), ViewerID(c), req.Content, req.IsAnonymous)
	if err != nil {
		if errors.Is(err, feed.ErrEmptyContent) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content must not be empty"})
			return
		}
		a.logger.Error("Failed to create post", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save entry"})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Like handles POST /api/posts/:id/like
func (a *FeedAPI) Like(c *gin.Context) {
	a.setLike(c, true)
}

// Unlike handles DELETE /api/posts/:id/like
func (a *FeedAPI) Unlike(c *gin.Context) {
	a.setLike(c, false)
}

func (a *FeedAPI) setLike(c *gin.Context, liked bool) {
	postID := c.Param("id")
	viewerID := ViewerID(c)

	var err error
	if liked {
		err = a.service.Like(c.Request.Context(), postID, viewerID)
	} else {
		err = a.service.Unlike(c.Request.Context(), postID, viewerID)
	}
	if err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		a.logger.Error("Failed to update like",
			zap.String("post_id", postID), zap.Bool("liked", liked), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update like"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "liked": liked})
}

// GetComments handles GET /api/posts/:id/comments
func (a *FeedAPI) GetComments(c *gin.Context) {
	postID := c.Param("id")
	comments, err := a.service.Comments(c.Request.Context(), postID)
	if err != nil {
		a.logger.Error("Failed to load comments", zap.String("post_id", postID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment handles POST /api/posts/:id/comments
func (a *FeedAPI) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	postID := c.Param("id")
	comment, err := a.service.AddComment(c.Request.Context(), postID, ViewerID(c), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrEmptyContent):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "content must not be empty"})
		case errors.Is(err, feed.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		default:
			a.logger.Error("Failed to create comment", zap.String("post_id", postID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post comment"})
		}
		return
	}
	c.JSON(http.StatusCreated, comment)
}
