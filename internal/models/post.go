package models

import "time"

type Post struct {
	ID           int    `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"not null" json:"title"`
	URL          string `json:"url,omitempty"`
	Content      string `json:"content,omitempty"`
	AuthorID     int    `gorm:"index" json:"author_id"`
	Points       int    `gorm:"default:0;not null" json:"points"`
	CommentCount int    `gorm:"default:0;not null" json:"comment_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:AuthorID" json:"user"`
}

type CreatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	URL     string `json:"url"`
	Content string `json:"content"`
}
