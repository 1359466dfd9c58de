package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackernest/backend/internal/cache"
	"github.com/hackernest/backend/internal/middleware"
	"github.com/hackernest/backend/internal/models"
	"github.com/hackernest/backend/pkg/types"
)

var errPostNotFound = errors.New("post not found")

type PostHandler struct {
	db    *gorm.DB
	cache cache.PostCache
}

func NewPostHandler(db *gorm.DB, postCache cache.PostCache) *PostHandler {
	return &PostHandler{db: db, cache: postCache}
}

// postRow is the flat scan target for the post projection queries.
type postRow struct {
	ID             int
	Title          string
	URL            string
	Content        string
	Points         int
	CommentCount   int
	CreatedAt      time.Time
	AuthorID       int
	AuthorUsername string
	IsUpvoted      bool
}

func (r postRow) toPost() types.Post {
	return types.Post{
		ID:           r.ID,
		Title:        r.Title,
		URL:          r.URL,
		Content:      r.Content,
		Points:       r.Points,
		CommentCount: r.CommentCount,
		Author:       types.Author{ID: r.AuthorID, Username: r.AuthorUsername},
		IsUpvoted:    r.IsUpvoted,
		CreatedAt:    r.CreatedAt,
	}
}

// postProjection builds the base select for post rows. When userID is
// non-zero, isUpvoted is resolved through a left join against the
// requesting user's upvote rows.
func (h *PostHandler) postProjection(userID int) *gorm.DB {
	query := h.db.Table("posts").
		Joins("LEFT JOIN users ON users.id = posts.author_id")

	if userID > 0 {
		return query.
			Select(`posts.id, posts.title, posts.url, posts.content, posts.points,
				posts.comment_count, posts.created_at,
				users.id AS author_id, users.username AS author_username,
				CASE WHEN pu.user_id IS NOT NULL THEN true ELSE false END AS is_upvoted`).
			Joins("LEFT JOIN post_upvotes pu ON pu.post_id = posts.id AND pu.user_id = ?", userID)
	}

	return query.
		Select(`posts.id, posts.title, posts.url, posts.content, posts.points,
			posts.comment_count, posts.created_at,
			users.id AS author_id, users.username AS author_username,
			false AS is_upvoted`)
}

// GetPosts returns one page of the posts list. Query parameters: page,
// limit, sortBy (points|createdAt), order (asc|desc), author, site.
func (h *PostHandler) GetPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	sortBy := c.DefaultQuery("sortBy", "points")
	order := c.DefaultQuery("order", "desc")
	if sortBy != "points" && sortBy != "createdAt" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "sortBy must be points or createdAt"})
		return
	}
	if order != "asc" && order != "desc" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "order must be asc or desc"})
		return
	}

	sortColumn := "posts.created_at"
	if sortBy == "points" {
		sortColumn = "posts.points"
	}

	userID, _ := extractUserID(c)

	applyFilters := func(q *gorm.DB) *gorm.DB {
		if author := c.Query("author"); author != "" {
			q = q.Where("posts.author_id = ?", author)
		}
		if site := c.Query("site"); site != "" {
			q = q.Where("posts.url = ?", site)
		}
		return q
	}

	var total int64
	if err := applyFilters(h.db.Model(&models.Post{})).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch posts"})
		return
	}

	var rows []postRow
	err := applyFilters(h.postProjection(userID)).
		Order(sortColumn + " " + order).
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch posts"})
		return
	}

	// Return empty array, not null
	posts := make([]types.Post, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, row.toPost())
	}

	c.JSON(http.StatusOK, types.PostsPage{
		Success: true,
		Message: "Posts fetched",
		Data:    posts,
		Pagination: types.Pagination{
			Page:       page,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// GetPost returns a single post by ID. The user-independent projection is
// served read-through from Redis when a cache is configured; isUpvoted is
// resolved per request on top of the cached body.
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid post id"})
		return
	}

	userID, _ := extractUserID(c)

	if h.cache != nil {
		if cached, err := h.cache.GetPost(c.Request.Context(), postID); err == nil && cached != nil {
			post := *cached
			post.IsUpvoted = h.isUpvotedBy(postID, userID)
			c.JSON(http.StatusOK, types.PostResponse{Success: true, Message: "Post fetched", Data: post})
			return
		}
	}

	var row postRow
	result := h.postProjection(userID).Where("posts.id = ?", postID).Limit(1).Scan(&row)
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}

	post := row.toPost()

	if h.cache != nil {
		if err := h.cache.SetPost(c.Request.Context(), &post); err != nil {
			log.Printf("post cache set failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, types.PostResponse{Success: true, Message: "Post fetched", Data: post})
}

func (h *PostHandler) isUpvotedBy(postID, userID int) bool {
	if userID == 0 {
		return false
	}
	var count int64
	h.db.Model(&models.PostUpvote{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count)
	return count > 0
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	post := models.Post{
		Title:    input.Title,
		URL:      input.URL,
		Content:  input.Content,
		AuthorID: authorID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to create post"})
		return
	}

	c.JSON(http.StatusCreated, types.CreatePostResponse{
		Success: true,
		Message: "Post created",
		Data:    types.CreatePostData{PostID: post.ID},
	})
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	postID := c.Param("id")

	currentUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var input struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}

	if post.AuthorID != currentUserID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "You can only edit your own posts"})
		return
	}

	if input.Title != "" {
		post.Title = input.Title
	}
	if input.URL != "" {
		post.URL = input.URL
	}
	if input.Content != "" {
		post.Content = input.Content
	}

	if err := h.db.Save(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to update post"})
		return
	}

	h.invalidateCache(c, post.ID)

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true, Message: "Post updated"})
}

// DeletePost deletes a post with its comments and upvotes (PROTECTED -
// requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID := c.Param("id")

	currentUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}

	if post.AuthorID != currentUserID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "You can only delete your own posts"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id IN (?)",
			tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", post.ID),
		).Delete(&models.CommentUpvote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostUpvote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to delete post"})
		return
	}

	h.invalidateCache(c, post.ID)

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true, Message: "Post deleted"})
}

// UpvotePost toggles the authenticated user's upvote on a post (PROTECTED).
//
// The whole read-modify-write runs in one transaction: the atomic points
// update serializes concurrent toggles on the post row, and the unique
// (post_id, user_id) index makes the losing half of a same-user race abort
// instead of inserting a second upvote row.
func (h *PostHandler) UpvotePost(c *gin.Context) {
	postID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid post id"})
		return
	}

	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var (
		points  int
		upvoted bool
	)

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var existing models.PostUpvote
		found := true
		if err := tx.Where("post_id = ? AND user_id = ?", postID, voterID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		delta := 1
		if found {
			delta = -1
		}

		var post models.Post
		result := tx.Model(&post).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
			Where("id = ?", postID).
			Update("points", gorm.Expr("points + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errPostNotFound
		}

		if found {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&models.PostUpvote{PostID: postID, UserID: voterID}).Error; err != nil {
				return err
			}
		}

		points = post.Points
		upvoted = delta > 0
		return nil
	})

	if errors.Is(err, errPostNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to upvote post"})
		return
	}

	h.invalidateCache(c, postID)
	middleware.RecordUpvoteToggle("post", upvoted)

	c.JSON(http.StatusOK, types.UpvoteResponse{
		Success: true,
		Message: "Post updated",
		Data:    types.UpvoteData{Count: points, IsUpvoted: upvoted},
	})
}

func (h *PostHandler) invalidateCache(c *gin.Context, postID int) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeletePost(c.Request.Context(), postID); err != nil {
		log.Printf("post cache invalidation failed: %v", err)
	}
}
