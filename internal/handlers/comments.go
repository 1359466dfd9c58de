package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackernest/backend/internal/middleware"
	"github.com/hackernest/backend/internal/models"
	"github.com/hackernest/backend/pkg/types"
)

var errCommentNotFound = errors.New("comment not found")

type CommentHandler struct {
	db *gorm.DB
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{db: db}
}

type commentRow struct {
	ID              int
	Body            string
	PostID          int
	ParentCommentID *int
	Points          int
	CreatedAt       time.Time
	AuthorID        int
	AuthorUsername  string
	IsUpvoted       bool
}

func (r commentRow) toComment() types.Comment {
	return types.Comment{
		ID:              r.ID,
		Body:            r.Body,
		PostID:          r.PostID,
		ParentCommentID: r.ParentCommentID,
		Points:          r.Points,
		Author:          types.Author{ID: r.AuthorID, Username: r.AuthorUsername},
		IsUpvoted:       r.IsUpvoted,
		CreatedAt:       r.CreatedAt,
	}
}

func (h *CommentHandler) commentProjection(userID int) *gorm.DB {
	query := h.db.Table("comments").
		Joins("LEFT JOIN users ON users.id = comments.author_id")

	if userID > 0 {
		return query.
			Select(`comments.id, comments.body, comments.post_id, comments.parent_comment_id,
				comments.points, comments.created_at,
				users.id AS author_id, users.username AS author_username,
				CASE WHEN cu.user_id IS NOT NULL THEN true ELSE false END AS is_upvoted`).
			Joins("LEFT JOIN comment_upvotes cu ON cu.comment_id = comments.id AND cu.user_id = ?", userID)
	}

	return query.
		Select(`comments.id, comments.body, comments.post_id, comments.parent_comment_id,
			comments.points, comments.created_at,
			users.id AS author_id, users.username AS author_username,
			false AS is_upvoted`)
}

// GetComments returns one page of a post's comments, newest first. Replies
// reference their parent through parentCommentId; threading is assembled by
// the consumer.
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}

	userID, _ := extractUserID(c)

	var total int64
	if err := h.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch comments"})
		return
	}

	var rows []commentRow
	err := h.commentProjection(userID).
		Where("comments.post_id = ?", post.ID).
		Order("comments.created_at DESC, comments.id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch comments"})
		return
	}

	comments := make([]types.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toComment())
	}

	c.JSON(http.StatusOK, types.CommentsPage{
		Success: true,
		Message: "Comments fetched",
		Data:    comments,
		Pagination: types.Pagination{
			Page:       page,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// CreateComment creates a comment on a post, optionally as a reply to
// another comment on the same post.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	postID := c.Param("id")
	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Post not found"})
		return
	}

	if input.ParentCommentID != nil {
		var parent models.Comment
		if err := h.db.First(&parent, *input.ParentCommentID).Error; err != nil || parent.PostID != post.ID {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Parent comment does not belong to this post"})
			return
		}
	}

	comment := models.Comment{
		Body:            input.Body,
		PostID:          post.ID,
		AuthorID:        authorID,
		ParentCommentID: input.ParentCommentID,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to create comment"})
		return
	}

	h.db.Preload("User").First(&comment, comment.ID)
	c.JSON(http.StatusCreated, comment)
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	commentID := c.Param("commentId")

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "You can only edit your own comments"})
		return
	}

	comment.Body = input.Body
	if err := h.db.Save(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to update comment"})
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true, Message: "Comment updated"})
}

// DeleteComment deletes a comment and its upvotes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID := c.Param("commentId")

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "You can only delete your own comments"})
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.CommentUpvote{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			Update("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true, Message: "Comment deleted"})
}

// UpvoteComment toggles the authenticated user's upvote on a comment
// (PROTECTED). Same transaction shape as the post toggle.
func (h *CommentHandler) UpvoteComment(c *gin.Context) {
	commentID, err := strconv.Atoi(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid comment id"})
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
		var existing models.CommentUpvote
		found := true
		if err := tx.Where("comment_id = ? AND user_id = ?", commentID, voterID).First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}

		delta := 1
		if found {
			delta = -1
		}

		var comment models.Comment
		result := tx.Model(&comment).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
			Where("id = ?", commentID).
			Update("points", gorm.Expr("points + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errCommentNotFound
		}

		if found {
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Create(&models.CommentUpvote{CommentID: commentID, UserID: voterID}).Error; err != nil {
				return err
			}
		}

		points = comment.Points
		upvoted = delta > 0
		return nil
	})

	if errors.Is(err, errCommentNotFound) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "Comment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to upvote comment"})
		return
	}

	middleware.RecordUpvoteToggle("comment", upvoted)

	c.JSON(http.StatusOK, types.UpvoteResponse{
		Success: true,
		Message: "Comment updated",
		Data:    types.UpvoteData{Count: points, IsUpvoted: upvoted},
	})
}
