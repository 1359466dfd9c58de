// Package types holds the wire contract shared by the API server and the
// Go client: post projections, pagination, and the response envelopes.
package types

import "time"

// Author is the slice of user data embedded in post projections.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Post is the projection returned by the posts endpoints. Points and
// IsUpvoted are per the requesting user's view of the world; IsUpvoted is
// always false for anonymous requests.
type Post struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	Content      string    `json:"content,omitempty"`
	Points       int       `json:"points"`
	CommentCount int       `json:"commentCount"`
	Author       Author    `json:"author"`
	IsUpvoted    bool      `json:"isUpvoted"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Comment is the projection returned by the comments endpoints.
type Comment struct {
	ID              int       `json:"id"`
	Body            string    `json:"body"`
	PostID          int       `json:"postId"`
	ParentCommentID *int      `json:"parentCommentId,omitempty"`
	Points          int       `json:"points"`
	Author          Author    `json:"author"`
	IsUpvoted       bool      `json:"isUpvoted"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Pagination describes the position of a page inside a list result.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// SuccessResponse is the envelope for mutations that return no data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// UpvoteData is the authoritative result of a toggle-upvote call.
type UpvoteData struct {
	Count     int  `json:"count"`
	IsUpvoted bool `json:"isUpvoted"`
}

// UpvoteResponse wraps UpvoteData in the success envelope.
type UpvoteResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    UpvoteData `json:"data"`
}

// CreatePostData carries the id of a freshly created post.
type CreatePostData struct {
	PostID int `json:"postId"`
}

// CreatePostResponse wraps CreatePostData in the success envelope.
type CreatePostResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    CreatePostData `json:"data"`
}

// PostResponse is the envelope for a single post.
type PostResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Post   `json:"data"`
}

// PostsPage is one page of the paginated posts list.
type PostsPage struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Data       []Post     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CommentsPage is one page of the paginated comments list.
type CommentsPage struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Data       []Comment  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
