package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a Post
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Content
	Content string `gorm:"type:text;not null" json:"content"`

	// Threading - parent_id is null for top-level comments, one nesting level only
	ParentID *string    `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent   *Comment   `gorm:"foreignKey:ParentID" json:"-"`
	Replies  []*Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`

	// Optional attached meme image
	MemeImageURL *string `gorm:"type:text" json:"meme_image_url,omitempty"`

	// Moderation
	IsDeleted bool `gorm:"default:false" json:"is_deleted"` // Soft delete for "comment removed"

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommentMention tracks @mentions in comments for notifications
type CommentMention struct {
	ID              string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CommentID       string  `gorm:"not null;index" json:"comment_id"`
	Comment         Comment `gorm:"foreignKey:CommentID" json:"-"`
	MentionedUserID string  `gorm:"not null;index" json:"mentioned_user_id"`
	MentionedUser   User    `gorm:"foreignKey:MentionedUserID" json:"mentioned_user,omitempty"`

	// Whether the notification was sent
	NotificationSent bool `gorm:"default:false" json:"notification_sent"`

	// GORM fields
	CreatedAt time.Time `json:"created_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (m *CommentMention) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
