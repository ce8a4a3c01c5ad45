package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/internal/db"
	"github.com/serene-app/serene-backend/internal/models"
	"github.com/serene-app/serene-backend/internal/realtime"
	"github.com/serene-app/serene-backend/pkg/logging"
	"github.com/serene-app/serene-backend/pkg/telemetry"
)

var (
	// ErrEmptyContent is returned for blank post or comment bodies
	ErrEmptyContent = errors.New("content must not be empty")

	// ErrPostNotFound is returned when the target post does not exist
	ErrPostNotFound = errors.New("post not found")
)

// Service implements the server side of the community feed
type Service struct {
	posts    *db.PostRepository
	likes    *db.LikeRepository
	comments *db.CommentRepository
	broker   realtime.Broker
	pageSize int
	logger   *zap.Logger
}

// NewService creates a new feed service
func NewService(repo *db.Repository, broker realtime.Broker, pageSize int) *Service {
	return &Service{
		posts:    db.NewPostRepository(repo),
		likes:    db.NewLikeRepository(repo),
		comments: db.NewCommentRepository(repo),
		broker:   broker,
		pageSize: pageSize,
		logger:   logging.WithComponent("feed-service"),
	}
}

// Load returns the anonymous feed for the given viewer: newest first,
// at most one page, each post annotated with like/comment counts and
// the viewer's like state
func (s *Service) Load(ctx context.Context, viewerID string) ([]Item, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.load")
	defer span.End()

	posts, err := s.posts.ListAnonymous(ctx, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return AnnotateAll(posts, viewerID), nil
}

// CreatePost stores a new vent post. Anonymous posts are pushed to
// live feed subscribers.
func (s *Service) CreatePost(ctx context.Context, userID, content string, anonymous bool) (*Item, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.create_post")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	post := &models.VentPost{
		UserID:      userID,
		Content:     content,
		IsAnonymous: anonymous,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	item := Annotate(post, userID)

	if anonymous {
		event := realtime.PostEvent{
			ID:          post.ID,
			Content:     post.Content,
			UserID:      post.UserID,
			IsAnonymous: true,
			CreatedAt:   post.CreatedAt,
		}
		if err := s.broker.Publish(ctx, event); err != nil {
			// The post is stored; a missed push only costs liveness
			s.logger.Warn("Failed to publish post event",
				zap.String("post_id", post.ID), zap.Error(err))
		}
	}

	return &item, nil
}

// Like records the viewer's like on a post. Liking an already liked
// post is a no-op; the (post, user) pair stays unique.
func (s *Service) Like(ctx context.Context, postID, viewerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "feed.like")
	defer span.End()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	return s.likes.Create(ctx, postID, viewerID)
}

// Unlike removes the viewer's like from a post
func (s *Service) Unlike(ctx context.Context, postID, viewerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "feed.unlike")
	defer span.End()

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	return s.likes.Delete(ctx, postID, viewerID)
}

// Comments returns a post's comments, oldest first, always anonymized
func (s *Service) Comments(ctx context.Context, postID string) ([]Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.comments")
	defer span.End()

	rows, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	comments := make([]Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, projectComment(row))
	}
	return comments, nil
}

// AddComment stores a comment on a post. Comments are always flagged
// anonymous. Blank bodies are rejected before touching the store.
func (s *Service) AddComment(ctx context.Context, postID, viewerID, content string) (*Comment, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.add_comment")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	comment := &models.PostComment{
		PostID:      postID,
		UserID:      viewerID,
		Content:     content,
		IsAnonymous: true,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	projected := projectComment(comment)
	return &projected, nil
}
