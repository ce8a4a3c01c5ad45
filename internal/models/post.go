package models

import (
	"time"
)

// VentPost represents an entry in the anonymous community feed
type VentPost struct {
	ID          string    `gorm:"type:uuid;primaryKey;column:id"`
	UserID      string    `gorm:"type:uuid;not null;index;column:user_id"`
	Content     string    `gorm:"type:text;not null;column:content"`
	IsAnonymous bool      `gorm:"not null;default:false;index;column:is_anonymous"`
	CreatedAt   time.Time `gorm:"not null;index:idx_vent_posts_created,sort:desc;column:created_at"`

	// Relationships
	Likes    []PostLike    `gorm:"foreignKey:PostID;references:ID"`
	Comments []PostComment `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for VentPost
func (VentPost) TableName() string {
	return "vent_posts"
}

// PostLike represents a viewer's like on a post.
// The (post, user) pair is unique; liking twice is a no-op.
type PostLike struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_user;column:post_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_user;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostLike
func (PostLike) TableName() string {
	return "post_likes"
}

// PostComment represents a comment on a feed post.
// Commenters are always rendered as "Anonymous" regardless of the flag.
type PostComment struct {
	ID          string    `gorm:"type:uuid;primaryKey;column:id"`
	PostID      string    `gorm:"type:uuid;not null;index;column:post_id"`
	UserID      string    `gorm:"type:uuid;not null;column:user_id"`
	Content     string    `gorm:"type:text;not null;column:content"`
	IsAnonymous bool      `gorm:"not null;default:true;column:is_anonymous"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostComment
func (PostComment) TableName() string {
	return "post_comments"
}
