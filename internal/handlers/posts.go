package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/models"
	"github.com/thecueroom/backend/internal/util"
	"gorm.io/gorm"
)

// CreatePost creates a new post on the community feed
// POST /api/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Title   string   `json:"title" binding:"required,min=1,max=200"`
		Content string   `json:"content" binding:"required,min=1,max=10000"`
		Tags    []string `json:"tags,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	post := models.Post{
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}

	if err := database.DB.Create(&post).Error; err != nil {
		util.RespondInternalError(c, "Failed to create post")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment post count for user "+userID, err)
	}

	if err := database.DB.Preload("User").First(&post, "id = ?", post.ID).Error; err != nil {
		logger.WarnWithFields("Failed to reload post with user", err)
	}

	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// GetPost retrieves a single post with its author
// GET /api/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	postID := c.Param("id")

	var post models.Post
	if err := database.DB.Preload("User").First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post})
}

// ListPosts returns the community feed, newest first
// GET /api/posts
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	if limit > 100 {
		limit = 100
	}

	tag := c.Query("tag")

	query := scopeByTag(database.DB.
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset), tag)

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "Failed to get posts")
		return
	}

	var total int64
	if err := scopeByTag(database.DB.Model(&models.Post{}), tag).Count(&total).Error; err != nil {
		logger.WarnWithFields("Failed to count posts", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// scopeByTag narrows a post query to one tag; the list and the count must
// share the predicate so pagination metadata matches the page.
func scopeByTag(q *gorm.DB, tag string) *gorm.DB {
	if tag != "" {
		return q.Where("? = ANY(tags)", tag)
	}
	return q
}

// DeletePost soft-deletes a post owned by the caller
// DELETE /api/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	postID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	isAdmin := false
	if u, exists := c.Get("user"); exists {
		if user, ok := u.(*models.User); ok {
			isAdmin = user.IsAdmin
		}
	}
	if post.UserID != userID && !isAdmin {
		util.RespondForbidden(c, "You do not own this post")
		return
	}

	if err := database.DB.Delete(&post).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete post")
		return
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", post.UserID).
		UpdateColumn("post_count", gorm.Expr("GREATEST(post_count - 1, 0)")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement post count for user "+post.UserID, err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "post_id": postID})
}
