// Package seed populates the development database with realistic data.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if err := s.seedComments(users, posts, 600); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating reactions...")
	if err := s.seedReactions(users, posts); err != nil {
		return fmt.Errorf("failed to seed reactions: %w", err)
	}

	logger.Log.Info("✅ Database seeded successfully")
	return nil
}

// Clean removes all seeded data. Destructive, dev environments only.
func (s *Seeder) Clean() error {
	tables := []string{"comment_mentions", "reactions", "comments", "posts", "users"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean table %s: %w", table, err)
		}
	}
	logger.Log.Info("🧹 Database cleaned")
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var users []models.User

	// Check if we already have seed users (users with @example.com email)
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing users, skipping creation",
			zap.Int("total_users", len(users)),
			zap.Int64("seed_users", seedUserCount))
		return users, nil
	}

	genres := []string{"techno", "house", "acid techno", "minimal", "psytrance", "drum & bass", "dub techno", "electro", "breakbeat", "ambient techno"}
	cities := []string{"Mumbai", "Bangalore", "Delhi", "Goa", "Pune", "Hyderabad", "Chennai", "Kolkata"}

	// Hash once, every seed user shares the dev password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedPasswordStr := string(hashedPassword)

	for i := 0; i < count; i++ {
		username := gofakeit.Username()
		email := fmt.Sprintf("%s@example.com", username)

		// Ensure unique username/email
		var existingUser models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = gofakeit.Username()
			email = fmt.Sprintf("%s@example.com", username)
		}

		genreCount := rand.Intn(3) + 1 // 1-3 genres
		userGenres := make([]string, 0, genreCount)
		genreMap := make(map[string]bool)
		for len(userGenres) < genreCount {
			genre := genres[rand.Intn(len(genres))]
			if !genreMap[genre] {
				genreMap[genre] = true
				userGenres = append(userGenres, genre)
			}
		}

		user := models.User{
			Email:        email,
			Username:     username,
			ArtistName:   gofakeit.HipsterWord() + " " + gofakeit.LastName(),
			Bio:          gofakeit.HipsterSentence(),
			City:         cities[rand.Intn(len(cities))],
			PasswordHash: &hashedPasswordStr,
			AvatarURL:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			Genres:       userGenres,
			IsVerified:   rand.Float32() < 0.4,
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user.LastActiveAt = &lastActive

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}

	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	var posts []models.Post

	topics := []string{
		"New track ID from last night's set",
		"Gear talk: rotary vs fader mixers",
		"Gig report: warehouse party in %s",
		"Sample pack recommendations?",
		"Mixdown feedback wanted",
		"Vinyl only set, worth it?",
		"Sunday sunrise set highlights",
	}
	tags := []string{"techno", "mix", "gear", "production", "gig", "vinyl", "modular"}

	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]

		title := topics[rand.Intn(len(topics))]
		if title == "Gig report: warehouse party in %s" {
			title = fmt.Sprintf(title, author.City)
		}

		tagCount := rand.Intn(3) + 1
		postTags := make([]string, 0, tagCount)
		tagMap := make(map[string]bool)
		for len(postTags) < tagCount {
			tag := tags[rand.Intn(len(tags))]
			if !tagMap[tag] {
				tagMap[tag] = true
				postTags = append(postTags, tag)
			}
		}

		post := models.Post{
			UserID:  author.ID,
			Title:   title,
			Content: gofakeit.Paragraph(1, 3, 12, " "),
			Tags:    postTags,
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		posts = append(posts, post)
	}

	logger.Log.Info("Created seed posts", zap.Int("count", len(posts)))
	return posts, nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	if len(posts) == 0 {
		return nil
	}

	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]

		comment := models.Comment{
			PostID:  post.ID,
			UserID:  author.ID,
			Content: gofakeit.HipsterSentence(),
		}

		// Roughly a quarter of comments are replies to an existing one
		if rand.Float32() < 0.25 {
			var parent models.Comment
			if err := s.db.Where("post_id = ? AND parent_id IS NULL", post.ID).
				Order("random()").First(&parent).Error; err == nil {
				comment.ParentID = &parent.ID
			}
		}

		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error; err != nil {
			logger.WarnWithFields("Failed to bump comment count during seed", err)
		}
	}

	logger.Log.Info("Created seed comments", zap.Int("count", count))
	return nil
}

func (s *Seeder) seedReactions(users []models.User, posts []models.Post) error {
	created := 0
	for _, post := range posts {
		// Each post gets reactions from a random subset of users
		reactorCount := rand.Intn(len(users)/3 + 1)
		perm := rand.Perm(len(users))
		for _, idx := range perm[:reactorCount] {
			reaction := models.Reaction{
				PostID: post.ID,
				UserID: users[idx].ID,
				Type:   models.AllReactionTypes[rand.Intn(len(models.AllReactionTypes))],
			}
			if err := s.db.Create(&reaction).Error; err != nil {
				return fmt.Errorf("failed to create reaction: %w", err)
			}
			created++
		}
	}

	logger.Log.Info("Created seed reactions", zap.Int("count", created))
	return nil
}
