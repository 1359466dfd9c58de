package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hackernest/backend/internal/models"
	"github.com/hackernest/backend/pkg/types"
)

// postRouter wires the post routes with a fixed requesting user; userID 0
// means anonymous.
func postRouter(db *gorm.DB, userID int) *gin.Engine {
	h := NewPostHandler(db, nil)
	r := gin.New()
	if userID > 0 {
		r.Use(asUser(userID))
	}
	r.GET("/api/posts", h.GetPosts)
	r.GET("/api/posts/:id", h.GetPost)
	r.POST("/api/posts", h.CreatePost)
	r.PUT("/api/posts/:id", h.UpdatePost)
	r.DELETE("/api/posts/:id", h.DeletePost)
	r.POST("/api/posts/:id/upvote", h.UpvotePost)
	return r
}

func upvoteRowCount(t *testing.T, db *gorm.DB, postID, userID int) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.PostUpvote{}).
		Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error)
	return count
}

func TestUpvotePostToggleAlternates(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, 5)
	router := postRouter(db, user.ID)

	expected := []struct {
		count     int
		isUpvoted bool
	}{
		{6, true},
		{5, false},
		{6, true},
		{5, false},
	}

	for i, want := range expected {
		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", post.ID), "")
		require.Equal(t, http.StatusOK, w.Code, "toggle %d", i)

		var resp types.UpvoteResponse
		decodeBody(t, w, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, want.count, resp.Data.Count, "toggle %d", i)
		assert.Equal(t, want.isUpvoted, resp.Data.IsUpvoted, "toggle %d", i)

		// Never more than one upvote row per (user, post).
		rows := upvoteRowCount(t, db, post.ID, user.ID)
		if want.isUpvoted {
			assert.EqualValues(t, 1, rows)
		} else {
			assert.EqualValues(t, 0, rows)
		}
	}
}

func TestUpvotePostRoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, 0)
	router := postRouter(db, user.ID)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", post.ID), "")
		require.Equal(t, http.StatusOK, w.Code)
	}

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 0, stored.Points)
	assert.EqualValues(t, 0, upvoteRowCount(t, db, post.ID, user.ID))
}

func TestUpvotePostNotFound(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	router := postRouter(db, user.ID)

	w := doJSON(t, router, http.MethodPost, "/api/posts/9999/upvote", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp types.ErrorResponse
	decodeBody(t, w, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Post not found", resp.Error)

	// Nothing was written.
	var upvotes int64
	require.NoError(t, db.Model(&models.PostUpvote{}).Count(&upvotes).Error)
	assert.EqualValues(t, 0, upvotes)
}

func TestUpvotePostInvalidID(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	router := postRouter(db, user.ID)

	w := doJSON(t, router, http.MethodPost, "/api/posts/abc/upvote", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPostsSortAndPagination(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, points := range []int{3, 10, 7, 1, 5} {
		post := seedPost(t, db, user.ID, points)
		require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	router := postRouter(db, 0)

	w := doJSON(t, router, http.MethodGet, "/api/posts?sortBy=points&order=desc&limit=2&page=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page types.PostsPage
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 10, page.Data[0].Points)
	assert.Equal(t, 7, page.Data[1].Points)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	w = doJSON(t, router, http.MethodGet, "/api/posts?sortBy=points&order=asc&limit=2&page=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 2)
	assert.Equal(t, 1, page.Data[0].Points)

	w = doJSON(t, router, http.MethodGet, "/api/posts?sortBy=createdAt&order=asc&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 5)
	assert.Equal(t, 3, page.Data[0].Points) // the oldest post

	w = doJSON(t, router, http.MethodGet, "/api/posts?sortBy=bogus", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPostsFilters(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)

	seedPost(t, db, alice.ID, 1)
	seedPost(t, db, alice.ID, 2)
	byBob := seedPost(t, db, bob.ID, 3)

	router := postRouter(db, 0)

	var page types.PostsPage
	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/posts?author=%d", alice.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 2)
	for _, p := range page.Data {
		assert.Equal(t, alice.ID, p.Author.ID)
	}

	w = doJSON(t, router, http.MethodGet, "/api/posts?site="+byBob.URL, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 1)
	assert.Equal(t, byBob.ID, page.Data[0].ID)
}

func TestGetPostsIsUpvotedPerUser(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	post := seedPost(t, db, alice.ID, 0)

	// Alice upvotes.
	w := doJSON(t, postRouter(db, alice.ID), http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", post.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var page types.PostsPage

	w = doJSON(t, postRouter(db, alice.ID), http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &page)
	require.Len(t, page.Data, 1)
	assert.True(t, page.Data[0].IsUpvoted)
	assert.Equal(t, 1, page.Data[0].Points)

	w = doJSON(t, postRouter(db, bob.ID), http.MethodGet, "/api/posts", "")
	decodeBody(t, w, &page)
	assert.False(t, page.Data[0].IsUpvoted)

	w = doJSON(t, postRouter(db, 0), http.MethodGet, "/api/posts", "")
	decodeBody(t, w, &page)
	assert.False(t, page.Data[0].IsUpvoted)
}

func TestGetPost(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	post := seedPost(t, db, user.ID, 2)
	router := postRouter(db, user.ID)

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.PostResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, post.ID, resp.Data.ID)
	assert.Equal(t, post.Title, resp.Data.Title)
	assert.Equal(t, 2, resp.Data.Points)
	assert.Equal(t, user.Username, resp.Data.Author.Username)
	assert.False(t, resp.Data.IsUpvoted)

	w = doJSON(t, router, http.MethodGet, "/api/posts/9999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	router := postRouter(db, user.ID)

	w := doJSON(t, router, http.MethodPost, "/api/posts",
		`{"title":"Show HN: something","url":"https://example.com","content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp types.CreatePostResponse
	decodeBody(t, w, &resp)
	assert.True(t, resp.Success)
	assert.NotZero(t, resp.Data.PostID)

	var stored models.Post
	require.NoError(t, db.First(&stored, resp.Data.PostID).Error)
	assert.Equal(t, user.ID, stored.AuthorID)
	assert.Equal(t, 0, stored.Points)

	w = doJSON(t, router, http.MethodPost, "/api/posts", `{"url":"https://no-title.example"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeletePostOwnership(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db)
	bob := seedUser(t, db)
	post := seedPost(t, db, alice.ID, 0)

	w := doJSON(t, postRouter(db, bob.ID), http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
		`{"title":"hijacked"}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, postRouter(db, bob.ID), http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, postRouter(db, alice.ID), http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
		`{"title":"edited"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, "edited", stored.Title)

	// Deleting also removes upvote rows.
	w = doJSON(t, postRouter(db, bob.ID), http.MethodPost, fmt.Sprintf("/api/posts/%d/upvote", post.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, postRouter(db, alice.ID), http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	require.ErrorIs(t, db.First(&stored, post.ID).Error, gorm.ErrRecordNotFound)
	var upvotes int64
	require.NoError(t, db.Model(&models.PostUpvote{}).Where("post_id = ?", post.ID).Count(&upvotes).Error)
	assert.EqualValues(t, 0, upvotes)
}
