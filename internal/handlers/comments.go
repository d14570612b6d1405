package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/middleware"
	"github.com/thecueroom/backend/internal/models"
	"github.com/thecueroom/backend/internal/util"
	"github.com/thecueroom/backend/internal/websocket"
	"gorm.io/gorm"
)

type createCommentRequest struct {
	Content      string  `json:"content" binding:"required,max=2000"`
	ParentID     *string `json:"parent_id,omitempty"`
	MemeImageURL *string `json:"meme_image_url,omitempty"`
}

// CreateComment adds a comment to a post and fans it out to the post's
// room. Threads are capped at one level: a reply to a reply gets
// re-parented onto the top-level comment.
// POST /api/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	postID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		util.RespondValidationError(c, "content", "Comment cannot be empty")
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if req.ParentID != nil && *req.ParentID != "" {
		parentID, err := resolveParent(postID, *req.ParentID)
		if err != nil {
			util.RespondValidationError(c, "parent_id", "Parent comment not found")
			return
		}
		req.ParentID = &parentID
	}

	comment := models.Comment{
		PostID:       postID,
		UserID:       userID,
		Content:      req.Content,
		ParentID:     req.ParentID,
		MemeImageURL: req.MemeImageURL,
	}
	if err := database.DB.Create(&comment).Error; err != nil {
		util.RespondInternalError(c, "Failed to create comment")
		return
	}

	if err := database.DB.Model(&post).UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
		logger.WarnWithFields("Failed to increment comment count for post "+postID, err)
	}
	middleware.RecordComment(comment.ParentID != nil)

	// Reload with the author attached for the response and the fan-out
	if err := database.DB.Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		logger.WarnWithFields("Failed to load comment with user for post "+postID, err)
	}

	if mentions := util.ExtractMentions(req.Content); len(mentions) > 0 {
		if err := h.processMentions(comment.ID, mentions, userID, postID); err != nil {
			logger.ErrorWithFields("Failed to process mentions", err)
		}
	}

	if h.wsHandler != nil {
		payload := &websocket.CommentPayload{
			CommentID:    comment.ID,
			PostID:       postID,
			UserID:       userID,
			Username:     comment.User.Username,
			ArtistName:   comment.User.ArtistName,
			AvatarURL:    comment.User.AvatarURL,
			Body:         comment.Content,
			CreatedAt:    comment.CreatedAt.UnixMilli(),
			MemeImageURL: derefString(comment.MemeImageURL),
			ParentID:     derefString(comment.ParentID),
		}
		go h.wsHandler.BroadcastCommentAdded(postID, payload)
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// resolveParent validates that the parent comment exists on the same post
// and flattens reply chains to the top-level ancestor.
func resolveParent(postID, parentID string) (string, error) {
	var parent models.Comment
	if err := database.DB.First(&parent, "id = ? AND post_id = ?", parentID, postID).Error; err != nil {
		return "", err
	}
	if parent.ParentID != nil {
		return *parent.ParentID, nil
	}
	return parent.ID, nil
}

// GetComments lists a post's comments oldest-first. Without parent_id it
// returns top-level comments with their replies preloaded; with parent_id
// it returns just that comment's replies.
// GET /api/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Param("id")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	parentID := c.Query("parent_id")

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	query := database.DB.
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_deleted = false").Order("created_at ASC")
		}).
		Preload("Replies.User").
		Where("post_id = ? AND is_deleted = false", postID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset)
	query = scopeByParent(query, parentID)

	var comments []models.Comment
	if err := query.Find(&comments).Error; err != nil {
		util.RespondInternalError(c, "Failed to get comments")
		return
	}

	var total int64
	countQuery := scopeByParent(
		database.DB.Model(&models.Comment{}).Where("post_id = ? AND is_deleted = false", postID),
		parentID,
	)
	if err := countQuery.Count(&total).Error; err != nil {
		logger.WarnWithFields("Failed to count comments for post "+postID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"meta": gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func scopeByParent(q *gorm.DB, parentID string) *gorm.DB {
	if parentID != "" {
		return q.Where("parent_id = ?", parentID)
	}
	return q.Where("parent_id IS NULL")
}

// DeleteComment soft-deletes so reply threads keep their structure; the
// body is replaced with a placeholder.
// DELETE /api/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	commentID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "You do not own this comment")
		return
	}

	comment.IsDeleted = true
	comment.Content = "[Comment deleted]"
	if err := database.DB.Save(&comment).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	err := database.DB.Model(&models.Post{}).Where("id = ?", comment.PostID).
		UpdateColumn("comments_count", gorm.Expr("GREATEST(comments_count - 1, 0)")).Error
	if err != nil {
		logger.WarnWithFields("Failed to decrement comment count for post "+comment.PostID, err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "comment_id": commentID})
}

// processMentions resolves @usernames, records mention rows, and pings
// mentioned users who are connected right now. Self-mentions are dropped.
func (h *Handlers) processMentions(commentID string, usernames []string, authorID, postID string) error {
	if len(usernames) == 0 {
		return nil
	}

	var mentioned []models.User
	if err := database.DB.Where("LOWER(username) IN ?", usernames).Find(&mentioned).Error; err != nil {
		return err
	}

	for _, user := range mentioned {
		if user.ID == authorID {
			continue
		}

		mention := models.CommentMention{
			CommentID:       commentID,
			MentionedUserID: user.ID,
		}
		if err := database.DB.Create(&mention).Error; err != nil {
			logger.WarnWithFields("Failed to record mention for user "+user.ID, err)
			continue
		}

		if h.wsHandler != nil {
			h.wsHandler.GetHub().SendToUser(user.ID, websocket.NewMessage(
				websocket.MessageTypeSystem,
				websocket.SystemPayload{
					Event: "mentioned",
					Data: map[string]interface{}{
						"comment_id": commentID,
						"post_id":    postID,
						"by_user_id": authorID,
					},
				},
			))
			database.DB.Model(&mention).UpdateColumn("notification_sent", true)
		}
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
