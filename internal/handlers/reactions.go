package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/middleware"
	"github.com/thecueroom/backend/internal/models"
	"github.com/thecueroom/backend/internal/util"
	"gorm.io/gorm/clause"
)

// React sets or replaces the caller's reaction on a post.
// A user holds at most one reaction per post; sending a different type
// swaps it in place rather than stacking.
// POST /api/posts/:id/react
func (h *Handlers) React(c *gin.Context) {
	postID := c.Param("id")
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Type models.ReactionType `json:"reactionType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if !req.Type.IsValid() {
		util.RespondValidationError(c, "reactionType", "unknown reaction type")
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	// Upsert against the (post_id, user_id) unique index so concurrent
	// requests from the same user collapse to a single row
	reaction := models.Reaction{
		PostID: postID,
		UserID: userID,
		Type:   req.Type,
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
	}).Create(&reaction).Error
	if err != nil {
		logger.ErrorWithFields("Failed to upsert reaction", err)
		util.RespondInternalError(c, "Failed to save reaction")
		return
	}

	middleware.RecordReaction(string(req.Type), "set")
	h.afterReactionWrite(c, postID, userID, string(req.Type))
}

// RemoveReaction removes the caller's reaction from a post.
// Removing a reaction that does not exist is not an error; the response
// still carries the current counts so the client can reconcile.
// DELETE /api/posts/:id/react
func (h *Handlers) RemoveReaction(c *gin.Context) {
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

	if err := database.DB.Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Reaction{}).Error; err != nil {
		logger.ErrorWithFields("Failed to delete reaction", err)
		util.RespondInternalError(c, "Failed to remove reaction")
		return
	}

	middleware.RecordReaction("none", "remove")
	h.afterReactionWrite(c, postID, userID, "")
}

// GetReactions returns the full reaction count map for a post, plus the
// caller's own reaction when authenticated.
// GET /api/posts/:id/reactions
func (h *Handlers) GetReactions(c *gin.Context) {
	postID := c.Param("id")

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var counts map[string]int
	if h.redis != nil {
		if cached, hit := h.redis.GetReactionCounts(c.Request.Context(), postID); hit {
			middleware.RecordCacheHit("reaction_counts")
			counts = cached
		} else {
			middleware.RecordCacheMiss("reaction_counts")
		}
	}
	if counts == nil {
		fresh, err := h.loadReactionCounts(postID)
		if err != nil {
			util.RespondInternalError(c, "Failed to get reactions")
			return
		}
		counts = fresh
		if h.redis != nil {
			if err := h.redis.SetReactionCounts(c.Request.Context(), postID, counts); err != nil {
				logger.WarnWithFields("Failed to cache reaction counts for post "+postID, err)
			}
		}
	}

	userReaction := ""
	if userID := c.GetString("user_id"); userID != "" {
		var reaction models.Reaction
		if err := database.DB.Where("post_id = ? AND user_id = ?", postID, userID).
			First(&reaction).Error; err == nil {
			userReaction = string(reaction.Type)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"reactions":    counts,
		"userReaction": nullableReaction(userReaction),
		"success":      true,
	})
}

// afterReactionWrite invalidates the cache, reloads counts, answers the
// request, and pushes the fresh totals to the post's room.
func (h *Handlers) afterReactionWrite(c *gin.Context, postID, userID, userReaction string) {
	if h.redis != nil {
		h.redis.InvalidateReactionCounts(c.Request.Context(), postID)
	}

	counts, err := h.loadReactionCounts(postID)
	if err != nil {
		logger.ErrorWithFields("Failed to load reaction counts", err)
		util.RespondInternalError(c, "Failed to load reactions")
		return
	}

	if h.redis != nil {
		if err := h.redis.SetReactionCounts(c.Request.Context(), postID, counts); err != nil {
			logger.WarnWithFields("Failed to cache reaction counts for post "+postID, err)
		}
	}

	if h.wsHandler != nil {
		go h.wsHandler.BroadcastReactionUpdate(postID, counts)
	}

	c.JSON(http.StatusOK, gin.H{
		"reactions":    counts,
		"userReaction": nullableReaction(userReaction),
		"success":      true,
	})
}

// nullableReaction maps the "no reaction" case to JSON null
func nullableReaction(r string) interface{} {
	if r == "" {
		return nil
	}
	return r
}

// loadReactionCounts derives the count map from the reactions table.
// Every reaction type is present in the result, zero included.
func (h *Handlers) loadReactionCounts(postID string) (map[string]int, error) {
	type row struct {
		Type  string
		Count int
	}
	var rows []row
	err := database.DB.Model(&models.Reaction{}).
		Select("type, COUNT(*) as count").
		Where("post_id = ?", postID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(models.AllReactionTypes))
	for _, t := range models.AllReactionTypes {
		counts[string(t)] = 0
	}
	for _, r := range rows {
		counts[r.Type] = r.Count
	}
	return counts, nil
}
