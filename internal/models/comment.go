package models

import "time"

type Comment struct {
	ID              int    `gorm:"primaryKey" json:"id"`
	Body            string `gorm:"not null" json:"body"`
	AuthorID        int    `gorm:"index" json:"author_id"`
	PostID          int    `gorm:"index" json:"post_id"`
	ParentCommentID *int   `json:"parent_comment_id,omitempty"`
	Points          int    `gorm:"default:0;not null" json:"points"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:AuthorID" json:"user"`
}

type CreateCommentRequest struct {
	Body            string `json:"body" binding:"required"`
	ParentCommentID *int   `json:"parent_comment_id,omitempty"`
}
