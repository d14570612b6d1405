package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a community post on the feed
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Title   string      `gorm:"not null" json:"title"`
	Content string      `gorm:"type:text;not null" json:"content"`
	Tags    StringArray `gorm:"type:text[]" json:"tags"`

	// Denormalized counters. CommentsCount is maintained by the comment handlers
	// with atomic column updates; reaction counts are always derived live from
	// the reactions table and never stored here.
	LikesCount    int `gorm:"default:0" json:"likes_count"`
	CommentsCount int `gorm:"default:0" json:"comments_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}
