package feed

import (
	"time"

	"github.com/serene-app/serene-backend/internal/models"
	"github.com/serene-app/serene-backend/internal/realtime"
)

// anonymousAuthor is how every commenter is displayed, regardless of
// the comment's own anonymity flag
const anonymousAuthor = "Anonymous"

// Item is a feed post projected for one viewer
type Item struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	UserID         string    `json:"user_id"`
	IsAnonymous    bool      `json:"is_anonymous"`
	CreatedAt      time.Time `json:"created_at"`
	LikeCount      int       `json:"like_count"`
	CommentCount   int       `json:"comment_count"`
	ViewerHasLiked bool      `json:"user_has_liked"`
}

// Comment is a post comment projected for display
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Annotate projects a post for the given viewer. Like and comment
// counts are the sizes of the loaded collections; ViewerHasLiked tests
// the viewer's membership in the likes collection. An empty viewerID
// never matches.
func Annotate(post *models.VentPost, viewerID string) Item {
	item := Item{
		ID:           post.ID,
		Content:      post.Content,
		UserID:       post.UserID,
		IsAnonymous:  post.IsAnonymous,
		CreatedAt:    post.CreatedAt,
		LikeCount:    len(post.Likes),
		CommentCount: len(post.Comments),
	}
	if viewerID != "" {
		for _, like := range post.Likes {
			if like.UserID == viewerID {
				item.ViewerHasLiked = true
				break
			}
		}
	}
	return item
}

// AnnotateAll projects a list of posts, preserving order
func AnnotateAll(posts []*models.VentPost, viewerID string) []Item {
	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		items = append(items, Annotate(post, viewerID))
	}
	return items
}

// projectComment maps a comment row for display, always anonymized
func projectComment(comment *models.PostComment) Comment {
	return Comment{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Author:    anonymousAuthor,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}

// itemFromEvent maps a realtime insert event to a feed item. Pushed
// events never carry viewer-specific state, so ViewerHasLiked is false.
func itemFromEvent(event realtime.PostEvent) Item {
	return Item{
		ID:           event.ID,
		Content:      event.Content,
		UserID:       event.UserID,
		IsAnonymous:  event.IsAnonymous,
		CreatedAt:    event.CreatedAt,
		LikeCount:    event.LikeCount,
		CommentCount: event.CommentCount,
	}
}
