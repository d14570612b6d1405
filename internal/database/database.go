package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/thecueroom/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared connection, set by Initialize. Handlers and the seeder
// reach it directly; tests swap in their own.
var DB *gorm.DB

// Initialize opens the Postgres connection and sizes the pool.
// DATABASE_URL wins; otherwise the DSN is assembled from DB_* vars.
func Initialize() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			envOr("DB_HOST", "localhost"),
			envOr("DB_PORT", "5432"),
			envOr("DB_USER", "postgres"),
			envOr("DB_PASSWORD", ""),
			envOr("DB_NAME", "thecueroom"),
			envOr("DB_SSLMODE", "disable"),
		)
	}

	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")
	return nil
}

// Migrate auto-migrates the schema and lays down the indexes the query
// paths rely on.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Printf("Warning: Could not create uuid-ossp extension: %v", err)
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Reaction{},
		&models.Comment{},
		&models.CommentMention{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	for _, stmt := range indexStatements {
		DB.Exec(stmt)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// The unique (post_id, user_id) pair is load-bearing: the reaction upsert
// targets it with ON CONFLICT. The rest serve the feed, thread, and
// mention lookups.
var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
	"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",

	"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_posts_tags ON posts USING GIN (tags)",

	"CREATE UNIQUE INDEX IF NOT EXISTS idx_reactions_post_user ON reactions (post_id, user_id)",
	"CREATE INDEX IF NOT EXISTS idx_reactions_post_type ON reactions (post_id, type)",
	"CREATE INDEX IF NOT EXISTS idx_reactions_user ON reactions (user_id)",

	"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at ASC)",
	"CREATE INDEX IF NOT EXISTS idx_comments_user ON comments (user_id)",
	"CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments (parent_id) WHERE parent_id IS NOT NULL",
	"CREATE INDEX IF NOT EXISTS idx_comments_post_not_deleted ON comments (post_id, created_at ASC) WHERE is_deleted = false",

	"CREATE INDEX IF NOT EXISTS idx_comment_mentions_user ON comment_mentions (mentioned_user_id)",
	"CREATE INDEX IF NOT EXISTS idx_comment_mentions_comment ON comment_mentions (comment_id)",
}

// Close releases the pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database, used by the /health endpoint.
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
