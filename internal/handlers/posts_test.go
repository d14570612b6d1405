package handlers

import (
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

// PostTestSuite contains feed listing and post handler tests
type PostTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	testUser *models.User
}

func (suite *PostTestSuite) SetupSuite() {
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

func (suite *PostTestSuite) setupRoutes() {
	api := suite.router.Group("/api")

	posts := api.Group("/posts")
	posts.GET("", suite.handlers.ListPosts)
	posts.GET("/:id", suite.handlers.GetPost)
}

func (suite *PostTestSuite) TearDownSuite() {
	if suite.db == nil {
		return
	}
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *PostTestSuite) SetupTest() {
	suite.db.Exec("TRUNCATE TABLE comment_mentions, reactions, comments, posts, users RESTART IDENTITY CASCADE")

	testID := fmt.Sprintf("%d", time.Now().UnixNano())
	suite.testUser = &models.User{
		Email:      fmt.Sprintf("poster_%s@test.com", testID),
		Username:   fmt.Sprintf("poster_%s", testID),
		ArtistName: "Test Poster",
	}
	require.NoError(suite.T(), suite.db.Create(suite.testUser).Error)
}

func (suite *PostTestSuite) createPost(title string, tags ...string) *models.Post {
	post := &models.Post{
		UserID:  suite.testUser.ID,
		Title:   title,
		Content: "warehouse rumblings",
		Tags:    models.StringArray(tags),
	}
	require.NoError(suite.T(), suite.db.Create(post).Error)
	return post
}

func (suite *PostTestSuite) listPosts(query string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/api/posts"+query, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// TestListPosts tests the unfiltered feed with pagination metadata
func (suite *PostTestSuite) TestListPosts() {
	suite.createPost("First drop", "techno")
	suite.createPost("Second drop", "ambient")
	suite.createPost("Third drop")

	w := suite.listPosts("")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Posts []models.Post `json:"posts"`
		Meta  struct {
			Total  int64 `json:"total"`
			Limit  int   `json:"limit"`
			Offset int   `json:"offset"`
		} `json:"meta"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(suite.T(), response.Posts, 3)
	assert.Equal(suite.T(), int64(3), response.Meta.Total)
	assert.Equal(suite.T(), 20, response.Meta.Limit)
}

// TestListPostsTagFilterTotal tests that meta.total reflects the tag filter
func (suite *PostTestSuite) TestListPostsTagFilterTotal() {
	suite.createPost("Peak time", "techno", "acid")
	suite.createPost("After hours", "techno")
	suite.createPost("Comedown", "ambient")

	w := suite.listPosts("?tag=techno")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Posts []models.Post `json:"posts"`
		Meta  struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(suite.T(), response.Posts, 2)
	assert.Equal(suite.T(), int64(2), response.Meta.Total)
	for _, post := range response.Posts {
		assert.Contains(suite.T(), []string(post.Tags), "techno")
	}
}

// TestListPostsTagFilterTotalWithPagination tests that total stays the
// filtered count even when the page holds fewer rows
func (suite *PostTestSuite) TestListPostsTagFilterTotalWithPagination() {
	suite.createPost("One", "dub")
	suite.createPost("Two", "dub")
	suite.createPost("Three", "dub")
	suite.createPost("Off topic", "gabber")

	w := suite.listPosts("?tag=dub&limit=2")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Posts []models.Post `json:"posts"`
		Meta  struct {
			Total int64 `json:"total"`
			Limit int   `json:"limit"`
		} `json:"meta"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(suite.T(), response.Posts, 2)
	assert.Equal(suite.T(), int64(3), response.Meta.Total)
	assert.Equal(suite.T(), 2, response.Meta.Limit)
}

// TestListPostsUnknownTag tests an empty filtered page
func (suite *PostTestSuite) TestListPostsUnknownTag() {
	suite.createPost("Lonely post", "techno")

	w := suite.listPosts("?tag=breakcore")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Posts []models.Post `json:"posts"`
		Meta  struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))

	assert.Len(suite.T(), response.Posts, 0)
	assert.Equal(suite.T(), int64(0), response.Meta.Total)
}

// TestGetPost tests fetching a single post with its author
func (suite *PostTestSuite) TestGetPost() {
	post := suite.createPost("Single fetch", "techno")

	req, _ := http.NewRequest("GET", "/api/posts/"+post.ID, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Post models.Post `json:"post"`
	}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(suite.T(), post.ID, response.Post.ID)
	assert.Equal(suite.T(), suite.testUser.Username, response.Post.User.Username)
}

func TestPostTestSuite(t *testing.T) {
	suite.Run(t, new(PostTestSuite))
}
