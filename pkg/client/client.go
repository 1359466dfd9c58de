// Package client is the Go API client for the server: authentication, post
// and comment reads, and the toggle-upvote mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hackernest/backend/pkg/types"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp types.ErrorResponse
		message := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ListParams is the filter/sort/pagination tuple of the posts list. The
// zero value asks for the server defaults.
type ListParams struct {
	Page   int
	Limit  int
	SortBy string // "points" or "createdAt"
	Order  string // "asc" or "desc"
	Author string
	Site   string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	if p.Author != "" {
		v.Set("author", p.Author)
	}
	if p.Site != "" {
		v.Set("site", p.Site)
	}
	return v
}

type authResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    types.Author `json:"user"`
}

// Register creates an account and installs its token on the client.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Login authenticates and installs the session token on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// ListPosts fetches one page of the posts list.
func (c *Client) ListPosts(ctx context.Context, params ListParams) (*types.PostsPage, error) {
	var page types.PostsPage
	if err := c.do(ctx, http.MethodGet, "/api/posts", params.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetPost fetches a single post projection.
func (c *Client) GetPost(ctx context.Context, postID int) (*types.Post, error) {
	var resp types.PostResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CreatePost submits a new post and returns its id.
func (c *Client) CreatePost(ctx context.Context, title, postURL, content string) (int, error) {
	var resp types.CreatePostResponse
	err := c.do(ctx, http.MethodPost, "/api/posts", nil, map[string]string{
		"title":   title,
		"url":     postURL,
		"content": content,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Data.PostID, nil
}

// UpvotePost toggles the authenticated user's upvote on a post and returns
// the authoritative count and membership flag.
func (c *Client) UpvotePost(ctx context.Context, postID int) (*types.UpvoteData, error) {
	var resp types.UpvoteResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", postID), nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetComments fetches one page of a post's comments.
func (c *Client) GetComments(ctx context.Context, postID, page, limit int) (*types.CommentsPage, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var resp types.CommentsPage
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), v, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpvoteComment toggles the authenticated user's upvote on a comment.
func (c *Client) UpvoteComment(ctx context.Context, commentID int) (*types.UpvoteData, error) {
	var resp types.UpvoteResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/upvote", commentID), nil, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
