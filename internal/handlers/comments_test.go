package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/thecueroom/backend/internal/database"
	"github.com/thecueroom/backend/internal/models"
	"gorm.io/gorm"
)

// CommentTestSuite contains comment handler tests
type CommentTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	handlers  *Handlers
	testUser  *models.User
	otherUser *models.User
	testPost  *models.Post
}

// SetupSuite initializes test database and handlers
func (suite *CommentTestSuite) SetupSuite() {
	db, ok := openTestDB(suite.T())
	if !ok {
		return
	}
	suite.db = db
	database.DB = db

	suite.handlers = NewHandlers(nil)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.setupRoutes()
}

func (suite *CommentTestSuite) setupRoutes() {
	api := suite.router.Group("/api")

	posts := api.Group("/posts")
	posts.GET("/:id/comments", suite.handlers.GetComments)

	authed := api.Group("")
	authed.Use(mockAuthMiddleware())
	authed.POST("/posts/:id/comments", suite.handlers.CreateComment)
	authed.DELETE("/comments/:id", suite.handlers.DeleteComment)
}

func (suite *CommentTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// SetupTest creates fresh test data before each test
func (suite *CommentTestSuite) SetupTest() {
	suite.db.Exec("TRUNCATE TABLE comment_mentions, reactions, comments, posts, users RESTART IDENTITY CASCADE")

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:      fmt.Sprintf("commenter_%s@test.com", testID),
		Username:   fmt.Sprintf("commenter_%s", testID),
		ArtistName: "Test Commenter",
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)

	suite.otherUser = &models.User{
		Email:      fmt.Sprintf("lurker_%s@test.com", testID),
		Username:   fmt.Sprintf("lurker_%s", testID),
		ArtistName: "Lurking Artist",
	}
	require.NoError(suite.T(), suite.db.Create(suite.otherUser).Error)

	suite.testPost = &models.Post{
		UserID:  suite.testUser.ID,
		Title:   "Modular jam from last night",
		Content: "Recorded straight off the mixer, no edits.",
	}
	require.NoError(suite.T(), suite.db.Create(suite.testPost).Error)
}

func (suite *CommentTestSuite) createComment(userID, postID string, body map[string]interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/api/posts/"+postID+"/comments", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestCreateComment tests creating a top-level comment
func (suite *CommentTestSuite) TestCreateComment() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "That breakdown at 3:40 is unreal",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.NotEmpty(t, response.Comment.ID)
	assert.Equal(t, "That breakdown at 3:40 is unreal", response.Comment.Content)
	assert.Equal(t, suite.testUser.ID, response.Comment.UserID)
	assert.Equal(t, suite.testUser.Username, response.Comment.User.Username)
	assert.Nil(t, response.Comment.ParentID)

	// Denormalized count on the post is bumped
	var post models.Post
	require.NoError(t, suite.db.First(&post, "id = ?", suite.testPost.ID).Error)
	assert.Equal(t, 1, post.CommentsCount)
}

// TestCreateCommentRejectsWhitespace tests the empty-after-trim rule
func (suite *CommentTestSuite) TestCreateCommentRejectsWhitespace() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "   \n\t  ",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var count int64
	suite.db.Model(&models.Comment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestCreateCommentOnMissingPost tests 404 on unknown post
func (suite *CommentTestSuite) TestCreateCommentOnMissingPost() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, "00000000-0000-0000-0000-000000000000", map[string]interface{}{
		"content": "hello?",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestCreateReply tests replying to an existing comment
func (suite *CommentTestSuite) TestCreateReply() {
	t := suite.T()

	parent := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "Anyone catch the sample source?",
	})
	var parentResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(parent.Body.Bytes(), &parentResponse))

	w := suite.createComment(suite.otherUser.ID, suite.testPost.ID, map[string]interface{}{
		"content":   "Old Detroit record I think",
		"parent_id": parentResponse.Comment.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Comment.ParentID)
	assert.Equal(t, parentResponse.Comment.ID, *response.Comment.ParentID)
}

// TestReplyToReplyFlattens tests that nesting stays one level deep
func (suite *CommentTestSuite) TestReplyToReplyFlattens() {
	t := suite.T()

	top := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "top level",
	})
	var topResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(top.Body.Bytes(), &topResponse))

	reply := suite.createComment(suite.otherUser.ID, suite.testPost.ID, map[string]interface{}{
		"content":   "first reply",
		"parent_id": topResponse.Comment.ID,
	})
	var replyResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(reply.Body.Bytes(), &replyResponse))

	// Replying to the reply re-parents onto the top-level comment
	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content":   "reply to the reply",
		"parent_id": replyResponse.Comment.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Comment.ParentID)
	assert.Equal(t, topResponse.Comment.ID, *response.Comment.ParentID)
}

// TestCreateReplyWithBadParent tests parent validation
func (suite *CommentTestSuite) TestCreateReplyWithBadParent() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content":   "orphan reply",
		"parent_id": "00000000-0000-0000-0000-000000000000",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// TestCreateCommentRecordsMentions tests @username mention rows
func (suite *CommentTestSuite) TestCreateCommentRecordsMentions() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": fmt.Sprintf("Hey @%s check this out", suite.otherUser.Username),
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var mentions []models.CommentMention
	require.NoError(t, suite.db.Find(&mentions).Error)
	require.Len(t, mentions, 1)
	assert.Equal(t, suite.otherUser.ID, mentions[0].MentionedUserID)
}

// TestSelfMentionIgnored tests that mentioning yourself records nothing
func (suite *CommentTestSuite) TestSelfMentionIgnored() {
	t := suite.T()

	w := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": fmt.Sprintf("Note to self @%s", suite.testUser.Username),
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	suite.db.Model(&models.CommentMention{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// TestGetComments tests listing top-level comments with replies preloaded
func (suite *CommentTestSuite) TestGetComments() {
	t := suite.T()

	first := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "first",
	})
	var firstResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResponse))

	suite.createComment(suite.otherUser.ID, suite.testPost.ID, map[string]interface{}{
		"content":   "a reply",
		"parent_id": firstResponse.Comment.ID,
	})
	suite.createComment(suite.otherUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "second",
	})

	req, _ := http.NewRequest("GET", "/api/posts/"+suite.testPost.ID+"/comments", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Comments []models.Comment `json:"comments"`
		Meta     struct {
			Total  int64 `json:"total"`
			Limit  int   `json:"limit"`
			Offset int   `json:"offset"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	// Only top-level comments in the list, oldest first, replies nested
	require.Len(t, response.Comments, 2)
	assert.Equal(t, "first", response.Comments[0].Content)
	assert.Equal(t, "second", response.Comments[1].Content)
	require.Len(t, response.Comments[0].Replies, 1)
	assert.Equal(t, "a reply", response.Comments[0].Replies[0].Content)
	assert.Equal(t, int64(2), response.Meta.Total)
}

// TestGetCommentsPagination tests limit and offset
func (suite *CommentTestSuite) TestGetCommentsPagination() {
	t := suite.T()

	for i := 0; i < 3; i++ {
		suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
			"content": fmt.Sprintf("comment %d", i),
		})
	}

	req, _ := http.NewRequest("GET", "/api/posts/"+suite.testPost.ID+"/comments?limit=2&offset=1", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var response struct {
		Comments []models.Comment `json:"comments"`
		Meta     struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(t, response.Comments, 2)
	assert.Equal(t, int64(3), response.Meta.Total)
}

// TestDeleteComment tests soft deletion by the author
func (suite *CommentTestSuite) TestDeleteComment() {
	t := suite.T()

	created := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "regrettable take",
	})
	var createdResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResponse))

	req, _ := http.NewRequest("DELETE", "/api/comments/"+createdResponse.Comment.ID, nil)
	req.Header.Set("X-User-ID", suite.testUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Row survives with placeholder content for threading
	var comment models.Comment
	require.NoError(t, suite.db.First(&comment, "id = ?", createdResponse.Comment.ID).Error)
	assert.True(t, comment.IsDeleted)
	assert.Equal(t, "[Comment deleted]", comment.Content)

	// Count goes back down
	var post models.Post
	require.NoError(t, suite.db.First(&post, "id = ?", suite.testPost.ID).Error)
	assert.Equal(t, 0, post.CommentsCount)
}

// TestDeleteCommentNotOwner tests that only the author can delete
func (suite *CommentTestSuite) TestDeleteCommentNotOwner() {
	t := suite.T()

	created := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "mine",
	})
	var createdResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResponse))

	req, _ := http.NewRequest("DELETE", "/api/comments/"+createdResponse.Comment.ID, nil)
	req.Header.Set("X-User-ID", suite.otherUser.ID)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// TestDeletedCommentsExcludedFromList tests the is_deleted filter
func (suite *CommentTestSuite) TestDeletedCommentsExcludedFromList() {
	t := suite.T()

	created := suite.createComment(suite.testUser.ID, suite.testPost.ID, map[string]interface{}{
		"content": "soon gone",
	})
	var createdResponse struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdResponse))

	req, _ := http.NewRequest("DELETE", "/api/comments/"+createdResponse.Comment.ID, nil)
	req.Header.Set("X-User-ID", suite.testUser.ID)
	suite.router.ServeHTTP(httptest.NewRecorder(), req)

	listReq, _ := http.NewRequest("GET", "/api/posts/"+suite.testPost.ID+"/comments", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, listReq)

	var response struct {
		Comments []models.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Comments, 0)
}

func TestCommentTestSuite(t *testing.T) {
	suite.Run(t, new(CommentTestSuite))
}
