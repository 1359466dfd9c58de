package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hackernest/backend/internal/models"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// GetUserProfile returns a user's public profile with submission stats.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID := c.Param("id")
	var user models.User

	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var postCount, commentCount int64
	h.db.Model(&models.Post{}).Where("author_id = ?", user.ID).Count(&postCount)
	h.db.Model(&models.Comment{}).Where("author_id = ?", user.ID).Count(&commentCount)

	// Karma is the raw point total across the user's posts.
	var karma int64
	h.db.Model(&models.Post{}).Where("author_id = ?", user.ID).
		Select("COALESCE(SUM(points), 0)").Scan(&karma)

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"created_at": user.CreatedAt,
		},
		"post_count":    postCount,
		"comment_count": commentCount,
		"karma":         karma,
	})
}
