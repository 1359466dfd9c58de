package models

import "time"

// PostUpvote tracks one user's upvote on one post. The composite unique
// index is the source of truth for isUpvoted: at most one row may exist per
// (post, user) pair, and a concurrent duplicate insert aborts its
// transaction instead of double-counting.
type PostUpvote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	PostID    int       `gorm:"uniqueIndex:idx_post_user" json:"post_id"`
	UserID    int       `gorm:"uniqueIndex:idx_post_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentUpvote mirrors PostUpvote for comments.
type CommentUpvote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CommentID int       `gorm:"uniqueIndex:idx_comment_user" json:"comment_id"`
	UserID    int       `gorm:"uniqueIndex:idx_comment_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
